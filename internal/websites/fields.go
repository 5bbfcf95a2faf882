package websites

import (
	"strings"

	"github.com/mycelian/postybirb/internal/model"
)

// Common field names shared by every destination model.
const (
	FieldTitle       = "title"
	FieldTags        = "tags"
	FieldDescription = "description"
	FieldRating      = "rating"
)

// BaseModel returns the fields every destination carries.
func BaseModel() model.FieldData {
	return model.FieldData{
		FieldTitle:       "",
		FieldTags:        map[string]any{"overrideDefault": false, "tags": []any{}},
		FieldDescription: map[string]any{"overrideDefault": false, "description": ""},
		FieldRating:      nil,
	}
}

// ResolveFields computes the effective value of every field in the model.
// An option value wins when set, then the default option's value, then the model default.
// Tag and description values that do not override the default defer to it.
func ResolveFields(fieldModel, defaultData, optionData model.FieldData) model.FieldData {
	out := make(model.FieldData, len(fieldModel))
	for name, fallback := range fieldModel {
		v := deepCopy(fallback)
		if d, ok := defaultData[name]; ok && isSet(d) {
			v = deepCopy(d)
		}
		if o, ok := optionData[name]; ok && isSet(o) && overrides(o) {
			v = deepCopy(o)
		}
		out[name] = v
	}
	return out
}

func isSet(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	}
	return true
}

// overrides reports false for {overrideDefault:false} wrappers.
func overrides(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return true
	}
	flag, has := m["overrideDefault"]
	if !has {
		return true
	}
	b, _ := flag.(bool)
	return b
}

// StringField reads a string field, tolerating absent or mistyped values.
func StringField(f model.FieldData, name string) string {
	s, _ := f[name].(string)
	return s
}

// DescriptionText extracts the description body from its wrapper or a bare string.
func DescriptionText(f model.FieldData) string {
	switch t := f[FieldDescription].(type) {
	case string:
		return t
	case map[string]any:
		s, _ := t["description"].(string)
		return s
	}
	return ""
}

// Tags extracts the tag list from its wrapper or a bare list.
func Tags(f model.FieldData) []string {
	var raw []any
	switch t := f[FieldTags].(type) {
	case []any:
		raw = t
	case []string:
		return append([]string(nil), t...)
	case map[string]any:
		raw, _ = t["tags"].([]any)
	}
	out := make([]string, 0, len(raw))
	for _, x := range raw {
		if s, ok := x.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// RequireTitle appends an error when the resolved title is blank.
func RequireTitle(res *ValidationResult, f model.FieldData) {
	if strings.TrimSpace(StringField(f, FieldTitle)) == "" {
		res.Errors = append(res.Errors, ValidationMessage{Field: FieldTitle, Message: "title is required"})
	}
}

// MaxLength appends a warning when a string field exceeds n runes.
func MaxLength(res *ValidationResult, f model.FieldData, name string, n int) {
	if s := StringField(f, name); len([]rune(s)) > n {
		res.Warnings = append(res.Warnings, ValidationMessage{Field: name, Message: "value will be truncated"})
	}
}
