package cmd

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mrdg/bleeper/audio"
	"github.com/mrdg/bleeper/song"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
)

const (
	maxRequestSize = 1 << 20
	maxRenderTime  = 30 * time.Second
	maxRenderSecs  = 600 // per channel
)

var (
	serveAddr string
	serveDir  string
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "address to listen on")
	serveCmd.Flags().StringVar(&serveDir, "dir", "", "directory for rendered files (default: a temporary directory)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Renders tracks over HTTP",
	Long: `Serves an HTTP API that renders tracks:

  POST /renders       renders a track document, responds with {"id": ...}
  GET  /renders/{id}  returns the rendered WAV file
  GET  /presets       lists the signal presets`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := serveDir
		if dir == "" {
			tmp, err := os.MkdirTemp("", "bleeper")
			if err != nil {
				return errors.WithStack(err)
			}
			defer os.RemoveAll(tmp)
			dir = tmp
		}
		srv := &http.Server{
			Addr:              serveAddr,
			Handler:           newServer(dir, sampleRate).handler(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      maxRenderTime + 30*time.Second,
			IdleTimeout:       2 * time.Minute,
		}
		go func() {
			<-cmd.Context().Done()
			srv.Close()
		}()
		slog.Info("listening", "addr", serveAddr, "dir", dir)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

type server struct {
	dir        string
	rate       int
	maxSamples int
	timeout    time.Duration
}

type renderResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Error string `json:"detail"`
}

func newServer(dir string, rate int) *server {
	return &server{
		dir:        dir,
		rate:       rate,
		maxSamples: maxRenderSecs * rate,
		timeout:    maxRenderTime,
	}
}

func (s *server) handler() http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/renders", s.handleRender).Methods("POST")
	router.HandleFunc("/renders/{id}", s.handleDownload).Methods("GET")
	router.HandleFunc("/presets", s.handlePresets).Methods("GET")
	return cors.Default().Handler(router)
}

func (s *server) handleRender(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestSize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	doc, err := song.ParseTrack(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	for name, ch := range doc.Channels {
		if ch != nil && ch.Sample != nil {
			writeError(w, http.StatusBadRequest, errors.Errorf("channel %s: samples are not supported", name))
			return
		}
	}
	track, err := doc.Build(s.rate, "")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	track.MaxSamples = s.maxSamples
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	samples, err := track.Render(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		writeError(w, http.StatusServiceUnavailable, errors.New("render timed out"))
		return
	}
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	id := uuid.New().String()
	if err := audio.SaveWAV(s.path(id), samples, s.rate); err != nil {
		slog.Error("saving render failed", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, errors.New("could not save render"))
		return
	}
	slog.Info("rendered track", "id", id, "samples", len(samples))
	writeJSON(w, http.StatusCreated, renderResponse{ID: id})
}

func (s *server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid render id"))
		return
	}
	f, err := os.Open(s.path(id.String()))
	if os.IsNotExist(err) {
		writeError(w, http.StatusNotFound, errors.New("render not found"))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", "audio/wav")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, f)
}

func (s *server) handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, audio.Presets())
}

func (s *server) path(id string) string {
	return filepath.Join(s.dir, id+".wav")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
