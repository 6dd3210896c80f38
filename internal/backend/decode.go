package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	domerrors "github.com/garyellow/lnmu-portal/internal/errors"
	"github.com/garyellow/lnmu-portal/internal/student"
)

// List is one page of summaries plus the size of the whole result set.
type List struct {
	Items      []student.Summary
	TotalItems int
}

type envelope struct {
	Items      *[]student.Summary `json:"items"`
	TotalItems *int               `json:"total_items"`
}

// decodeList accepts either {items, total_items} or a bare array. A bare
// array, or an envelope without a positive total, counts its own items.
func decodeList(body []byte) (List, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return List{}, fmt.Errorf("empty body: %w", domerrors.ErrMalformedResponse)
	}

	switch trimmed[0] {
	case '[':
		var items []student.Summary
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return List{}, fmt.Errorf("decode list: %v: %w", err, domerrors.ErrMalformedResponse)
		}
		return List{Items: nonNil(items), TotalItems: len(items)}, nil
	case '{':
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return List{}, fmt.Errorf("decode list: %v: %w", err, domerrors.ErrMalformedResponse)
		}
		if env.Items == nil {
			return List{}, fmt.Errorf("missing items: %w", domerrors.ErrMalformedResponse)
		}
		items := nonNil(*env.Items)
		total := len(items)
		if env.TotalItems != nil && *env.TotalItems > 0 {
			total = *env.TotalItems
		}
		return List{Items: items, TotalItems: total}, nil
	default:
		return List{}, fmt.Errorf("unexpected list shape: %w", domerrors.ErrMalformedResponse)
	}
}

// decodeScalars reads an array whose members may be strings or numbers.
func decodeScalars(body []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode options: %v: %w", err, domerrors.ErrMalformedResponse)
	}

	out := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			if s := strings.TrimSpace(val); s != "" {
				out = append(out, s)
			}
		case json.Number:
			out = append(out, val.String())
		case bool:
			out = append(out, strconv.FormatBool(val))
		case nil:
		default:
			return nil, fmt.Errorf("option of type %T: %w", v, domerrors.ErrMalformedResponse)
		}
	}
	return out, nil
}

func decodeProfile(body []byte) (*student.Profile, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("profile is not an object: %w", domerrors.ErrMalformedResponse)
	}
	var p student.Profile
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %v: %w", err, domerrors.ErrMalformedResponse)
	}
	if p.RollNumber == "" {
		return nil, fmt.Errorf("profile without rollno: %w", domerrors.ErrMalformedResponse)
	}
	return &p, nil
}

func nonNil(items []student.Summary) []student.Summary {
	if items == nil {
		return []student.Summary{}
	}
	return items
}
