package mask

import (
	"strconv"
	"strings"
)

// Format writes atoms back in mask notation. Tokens are separated by a
// space so that numeric arguments never run into note symbols.
func Format(atoms []Atom, set []rune) string {
	var b strings.Builder
	format(&b, atoms, set)
	return b.String()
}

func format(b *strings.Builder, atoms []Atom, set []rune) {
	for i, atom := range atoms {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch a := atom.(type) {
		case Octave:
			b.WriteRune(symOctave)
			b.WriteString(strconv.Itoa(int(a)))
		case Length:
			b.WriteRune(symLength)
			b.WriteString(strconv.Itoa(int(a)))
		case Volume:
			b.WriteRune(symVolume)
			b.WriteString(strconv.Itoa(int(a)))
		case Note:
			b.WriteRune(set[a.Index])
		case Rest:
			b.WriteRune(symRest)
		case More:
			b.WriteRune(symMore)
		case OctaveIncr:
			b.WriteRune(symOctaveIncr)
		case OctaveDecr:
			b.WriteRune(symOctaveDecr)
		case LengthIncr:
			b.WriteRune(symLengthIncr)
		case LengthDecr:
			b.WriteRune(symLengthDecr)
		case VolumeIncr:
			b.WriteRune(symVolumeIncr)
		case VolumeDecr:
			b.WriteRune(symVolumeDecr)
		case Loop:
			b.WriteRune(symLoopOpen)
			b.WriteString(strconv.Itoa(a.Repeat))
			if len(a.Body) > 0 {
				b.WriteByte(' ')
			}
			format(b, a.Body, set)
			b.WriteRune(symLoopClose)
		case Tuplet:
			b.WriteRune(symTupletOpen)
			format(b, a.Body, set)
			b.WriteRune(symTupletClose)
		}
	}
}
