package identity

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Normalizer reconciles user identifiers that arrive either as opaque strings
// or as native uuid values.
type Normalizer struct {
	logger zerolog.Logger
}

// NewNormalizer constructs a Normalizer.
func NewNormalizer(logger zerolog.Logger) *Normalizer {
	return &Normalizer{logger: logger.With().Str("component", "identity_normalizer").Logger()}
}

// Native parses raw into its native form. The second return value is false
// when raw has no native representation.
func Native(raw interface{}) (uuid.UUID, bool) {
	switch v := raw.(type) {
	case uuid.UUID:
		return v, v != uuid.Nil
	case *uuid.UUID:
		if v == nil {
			return uuid.Nil, false
		}
		return *v, *v != uuid.Nil
	case [16]byte:
		id := uuid.UUID(v)
		return id, id != uuid.Nil
	case string:
		id, err := uuid.Parse(strings.TrimSpace(v))
		if err != nil {
			return uuid.Nil, false
		}
		return id, true
	case fmt.Stringer:
		return Native(v.String())
	default:
		return uuid.Nil, false
	}
}

func rawString(raw interface{}) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case uuid.UUID:
		return v.String()
	case *uuid.UUID:
		if v == nil {
			return ""
		}
		return v.String()
	case [16]byte:
		return uuid.UUID(v).String()
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Key returns the canonical string key for raw. Identifiers that parse as a
// native id collapse to the canonical lower-case form; anything else is
// returned trimmed and as-is.
func (n *Normalizer) Key(raw interface{}) string {
	if id, ok := Native(raw); ok {
		return id.String()
	}

	key := rawString(raw)
	if key != "" {
		n.logger.Debug().Str("user_id", key).Msg("identifier has no native form, using raw value")
	}
	return key
}

// NewDirectory returns an empty dual-keyed lookup table.
func (n *Normalizer) NewDirectory() *Directory {
	return &Directory{
		byString: make(map[string]string),
		byNative: make(map[uuid.UUID]string),
		logger:   n.logger,
	}
}

// Directory maps user identifiers to display names. Every entry is registered
// under both its string and native form, so a probe with either succeeds.
type Directory struct {
	byString map[string]string
	byNative map[uuid.UUID]string
	logger   zerolog.Logger
}

// Register stores name under every representation of raw.
func (d *Directory) Register(raw interface{}, name string) {
	if s := rawString(raw); s != "" {
		d.byString[s] = name
	}
	if id, ok := Native(raw); ok {
		d.byNative[id] = name
		d.byString[id.String()] = name
	}
}

// Lookup resolves a display name for raw in whichever representation it uses.
func (d *Directory) Lookup(raw interface{}) (string, bool) {
	if s := rawString(raw); s != "" {
		if name, ok := d.byString[s]; ok {
			return name, true
		}
	}
	if id, ok := Native(raw); ok {
		if name, ok := d.byNative[id]; ok {
			return name, true
		}
	}

	d.logger.Debug().Str("user_id", rawString(raw)).Msg("identifier lookup miss")
	return "", false
}

// Len returns the number of distinct native identifiers registered plus any
// string-only entries.
func (d *Directory) Len() int {
	count := len(d.byNative)
	for key := range d.byString {
		if _, ok := Native(key); !ok {
			count++
		}
	}
	return count
}
