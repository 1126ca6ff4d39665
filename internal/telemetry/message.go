// Package telemetry parses the tracker's text feed and keeps a connection to
// it alive.
package telemetry

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformed is returned for a sample whose fields cannot be used.
var ErrMalformed = errors.New("telemetry: malformed message")

// Kind identifies a message by its tag.
type Kind int

const (
	Unknown     Kind = iota
	Quaternion       // QC w x y z
	Position         // PS x y z (mm)
	BaseStation      // BS pitch roll (degrees)
	Euler            // EA yaw pitch roll (degrees)
	Flatland         // FLAT gyro acc complementary (degrees)
)

var tags = map[string]Kind{
	"QC":   Quaternion,
	"PS":   Position,
	"BS":   BaseStation,
	"EA":   Euler,
	"FLAT": Flatland,
}

var arity = map[Kind]int{
	Quaternion:  4,
	Position:    3,
	BaseStation: 2,
	Euler:       3,
	Flatland:    3,
}

// Arity is the number of numeric fields a message of kind k carries.
func (k Kind) Arity() int { return arity[k] }

func (k Kind) String() string {
	for tag, kk := range tags {
		if kk == k {
			return tag
		}
	}
	return "?"
}

// Message is one parsed sample.
type Message struct {
	Kind   Kind
	Tag    string
	Values []float64
}

// Parse reads one line. Quotes are stripped and fields are split on
// whitespace. Unknown tags yield a Message of Kind Unknown and no error so the
// caller can skip them; known tags with missing, extra or non-finite fields
// return ErrMalformed.
func Parse(line string) (Message, error) {
	fields := strings.Fields(strings.ReplaceAll(line, `"`, ""))
	if len(fields) == 0 {
		return Message{}, fmt.Errorf("%w: empty line", ErrMalformed)
	}

	m := Message{Tag: fields[0], Kind: tags[fields[0]]}
	if m.Kind == Unknown {
		return m, nil
	}

	args := fields[1:]
	if len(args) != m.Kind.Arity() {
		return Message{}, fmt.Errorf("%w: %s wants %d fields, got %d",
			ErrMalformed, m.Tag, m.Kind.Arity(), len(args))
	}
	m.Values = make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Message{}, fmt.Errorf("%w: %s field %d %q", ErrMalformed, m.Tag, i+1, a)
		}
		m.Values[i] = v
	}
	return m, nil
}

// Format renders a message the way Parse reads it.
func Format(k Kind, values ...float64) string {
	var b strings.Builder
	b.WriteString(k.String())
	for _, v := range values {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	}
	return b.String()
}
