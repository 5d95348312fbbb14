package logdb

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRecord is returned when a record can't be written to the log
	// in a way that would read back the same
	ErrInvalidRecord = errors.New("invalid record")
)

// Op is the kind of operation stored in a log record
type Op int

const (
	// OpPut sets a key to a value
	OpPut Op = iota + 1
)

// names as they appear after "op:" in the log
var opNames = map[Op]string{
	OpPut: "put",
}

func (op Op) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

func opFromName(name string) (Op, bool) {
	for op, s := range opNames {
		if s == name {
			return op, true
		}
	}
	return 0, false
}

// Record is a single operation in the log
type Record struct {
	Op    Op
	Key   string
	Value string
}

const (
	fieldSep    = ", "
	prefixOp    = "op:"
	prefixKey   = "key:"
	prefixValue = "val:"
)

// ValidateRecord returns an error if rec can't be serialized by
// MarshalRecord in a way that ParseLine returns the same record.
func ValidateRecord(rec *Record) error {
	if _, ok := opNames[rec.Op]; !ok {
		return fmt.Errorf("%w: unknown op %s", ErrInvalidRecord, rec.Op)
	}
	if rec.Key == "" {
		return fmt.Errorf("%w: key is empty", ErrInvalidRecord)
	}
	if err := validateField("key", rec.Key); err != nil {
		return err
	}
	return validateField("value", rec.Value)
}

func validateField(name string, s string) error {
	if strings.Contains(s, `"`) {
		return fmt.Errorf("%w: %s cannot contain '\"'", ErrInvalidRecord, name)
	}
	if strings.Contains(s, fieldSep) {
		return fmt.Errorf("%w: %s cannot contain '%s'", ErrInvalidRecord, name, fieldSep)
	}
	if strings.ContainsAny(s, "\r\n") {
		return fmt.Errorf("%w: %s cannot contain newlines", ErrInvalidRecord, name)
	}
	return nil
}

// MarshalRecord serializes rec as a single log line, without the trailing newline.
// format of the line:
// [op:put, key:"<key>", val:"<value>"]
func MarshalRecord(rec *Record) string {
	var sb strings.Builder
	sb.Grow(len(rec.Key) + len(rec.Value) + 32)
	sb.WriteString("[")
	sb.WriteString(prefixOp)
	sb.WriteString(rec.Op.String())
	sb.WriteString(fieldSep)
	sb.WriteString(prefixKey)
	sb.WriteString(`"`)
	sb.WriteString(rec.Key)
	sb.WriteString(`"`)
	sb.WriteString(fieldSep)
	sb.WriteString(prefixValue)
	sb.WriteString(`"`)
	sb.WriteString(rec.Value)
	sb.WriteString(`"]`)
	return sb.String()
}

// ParseLine parses a single log line.
// Returns false if line is not a record we understand. That is not an error:
// blank lines, garbage and unknown operations are all skipped during replay.
func ParseLine(line string) (*Record, bool) {
	line = strings.TrimSpace(line)
	if len(line) < 2 || line[0] != '[' || line[len(line)-1] != ']' {
		return nil, false
	}
	inner := line[1 : len(line)-1]

	var opName, key, value string
	var hasOp, hasKey, hasValue bool
	for _, part := range strings.Split(inner, fieldSep) {
		if s, ok := strings.CutPrefix(part, prefixOp); ok {
			opName, hasOp = strings.Trim(s, `"`), true
		} else if s, ok := strings.CutPrefix(part, prefixKey); ok {
			key, hasKey = strings.Trim(s, `"`), true
		} else if s, ok := strings.CutPrefix(part, prefixValue); ok {
			value, hasValue = strings.Trim(s, `"`), true
		}
	}
	if !hasOp {
		return nil, false
	}
	op, ok := opFromName(opName)
	if !ok {
		return nil, false
	}
	switch op {
	case OpPut:
		if !hasKey || !hasValue {
			return nil, false
		}
		return &Record{
			Op:    op,
			Key:   key,
			Value: value,
		}, true
	}
	return nil, false
}
