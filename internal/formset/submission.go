package formset

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultMaxForms caps the row count accepted from a submission
const DefaultMaxForms = 1000

var (
	// ErrManagementForm is returned when the management fields are missing or malformed
	ErrManagementForm = errors.New("formset management data is missing or has been tampered with")

	// ErrTooManyForms is returned when the submitted row count is out of range
	ErrTooManyForms = errors.New("formset submitted too many forms")
)

// Row is one submitted row of a formset
type Row struct {
	Index   int
	Fields  map[string]string
	Deleted bool
}

// Get returns the trimmed value of field
func (r Row) Get(field string) string {
	return strings.TrimSpace(r.Fields[field])
}

// Checked reports whether the checkbox field was submitted as checked
func (r Row) Checked(field string) bool {
	return isChecked(r.Fields[field])
}

// IsEmpty reports whether every field other than the delete flag is blank
func (r Row) IsEmpty() bool {
	for k, v := range r.Fields {
		if k == DeleteField {
			continue
		}
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Submission is a parsed formset
type Submission struct {
	Prefix  string
	Total   int
	Initial int
	Rows    []Row
}

// Active returns the rows that are neither deleted nor blank, in index order
func (s *Submission) Active() []Row {
	out := make([]Row, 0, len(s.Rows))
	for _, r := range s.Rows {
		if r.Deleted || r.IsEmpty() {
			continue
		}
		out = append(out, r)
	}
	return out
}

// IsEmpty reports whether the submission has no active rows
func (s *Submission) IsEmpty() bool {
	return len(s.Active()) == 0
}

type parseOptions struct {
	maxForms     int
	allowMissing bool
}

// ParseOption tunes Parse
type ParseOption func(*parseOptions)

// WithMaxForms overrides DefaultMaxForms
func WithMaxForms(n int) ParseOption {
	return func(o *parseOptions) { o.maxForms = n }
}

// AllowMissingManagement treats an absent TOTAL_FORMS field as an empty
// formset instead of an error. Used for optional formsets such as tag
// selection, which is not rendered when no tags exist.
func AllowMissingManagement() ParseOption {
	return func(o *parseOptions) { o.allowMissing = true }
}

// Parse reads the formset with prefix from submitted form values. The
// TOTAL_FORMS value comes from the client and is validated here: it must be
// a decimal integer in [0, max forms]. Rows are collected for every index
// below it, and fields at other indices are ignored.
func Parse(values url.Values, prefix string, opts ...ParseOption) (*Submission, error) {
	o := parseOptions{maxForms: DefaultMaxForms}
	for _, fn := range opts {
		fn(&o)
	}

	totalKey := ManagementName(prefix, TotalForms)
	if _, ok := values[totalKey]; !ok && o.allowMissing {
		return &Submission{Prefix: prefix}, nil
	}

	total, err := managementInt(values, totalKey, true)
	if err != nil {
		return nil, err
	}
	if total < 0 || total > o.maxForms {
		return nil, fmt.Errorf("%w: %s=%d (max %d)", ErrTooManyForms, totalKey, total, o.maxForms)
	}

	initial, err := managementInt(values, ManagementName(prefix, InitialForms), false)
	if err != nil {
		return nil, err
	}

	rows := make(map[int]*Row, total)
	keyPrefix := prefix + "-"
	for key, vals := range values {
		if !strings.HasPrefix(key, keyPrefix) || len(vals) == 0 {
			continue
		}
		rest := strings.TrimPrefix(key, keyPrefix)
		idxPart, field, ok := strings.Cut(rest, "-")
		if !ok || field == "" {
			continue
		}
		idx, err := strconv.Atoi(idxPart)
		if err != nil || idx < 0 || idx >= total {
			continue
		}

		row, ok := rows[idx]
		if !ok {
			row = &Row{Index: idx, Fields: make(map[string]string)}
			rows[idx] = row
		}
		row.Fields[field] = vals[0]
		if field == DeleteField {
			row.Deleted = isChecked(vals[0])
		}
	}

	sub := &Submission{Prefix: prefix, Total: total, Initial: initial}
	for i := 0; i < total; i++ {
		if row, ok := rows[i]; ok {
			sub.Rows = append(sub.Rows, *row)
			continue
		}
		sub.Rows = append(sub.Rows, Row{Index: i, Fields: map[string]string{}})
	}
	return sub, nil
}

// Management returns the management field values for a formset rendering
// total rows of which initial were pre-filled from storage.
func Management(prefix string, total, initial int) map[string]string {
	return map[string]string{
		ManagementName(prefix, TotalForms):   strconv.Itoa(total),
		ManagementName(prefix, InitialForms): strconv.Itoa(initial),
		ManagementName(prefix, MinNumForms):  "0",
		ManagementName(prefix, MaxNumForms):  strconv.Itoa(DefaultMaxForms),
	}
}

func managementInt(values url.Values, key string, required bool) (int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		if required {
			return 0, fmt.Errorf("%w: %s is missing", ErrManagementForm, key)
		}
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrManagementForm, key, raw)
	}
	return n, nil
}

func isChecked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "checked", "yes":
		return true
	}
	return false
}
