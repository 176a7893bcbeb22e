package hydrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type dbSettings struct {
	Host    string   `json:"host"`
	Port    int      `json:"port"`
	Replica replica  `json:"replica"`
	Tags    []string `json:"tags"`
}

type replica struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
}

func TestDecoderCases(t *testing.T) {
	cases := []struct {
		name      string
		ctx       Context
		input     map[string]any
		options   []DecoderOption[dbSettings]
		expect    dbSettings
		expectErr string
	}{
		{
			name:   "plain",
			input:  map[string]any{"host": "db", "port": 6000},
			expect: dbSettings{Host: "db", Port: 6000},
		},
		{
			name:   "nil payload decodes zero value",
			expect: dbSettings{},
		},
		{
			name:  "pre hook splits address",
			input: map[string]any{"host": "db:5432"},
			options: []DecoderOption[dbSettings]{
				WithPreHook[dbSettings](splitAddressPreHook),
			},
			expect: dbSettings{Host: "db", Port: 5432},
		},
		{
			name:  "post hook tags scope",
			ctx:   Context{Scope: "tenant"},
			input: map[string]any{"host": "db"},
			options: []DecoderOption[dbSettings]{
				WithPostHook[dbSettings](scopeTagPostHook),
			},
			expect: dbSettings{Host: "db", Tags: []string{"scope:tenant"}},
		},
		{
			name:  "unknown fields rejected",
			input: map[string]any{"host": "db", "extra": true},
			options: []DecoderOption[dbSettings]{
				WithDisallowUnknownFields[dbSettings](),
			},
			expectErr: "hydrate: decode overlay",
		},
		{
			name:  "pre hook error",
			ctx:   Context{Scope: "user"},
			input: map[string]any{"host": "db:nope:1"},
			options: []DecoderOption[dbSettings]{
				WithPreHook[dbSettings](splitAddressPreHook),
			},
			expectErr: "hydrate: pre-hook for user failed",
		},
		{
			name:  "custom decoder",
			input: map[string]any{"raw": `{"host":"custom","port":1}`},
			options: []DecoderOption[dbSettings]{
				WithCustomDecoder[dbSettings](rawDecoder),
			},
			expect: dbSettings{Host: "custom", Port: 1},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := NewDecoder(tc.options...).Decode(tc.ctx, tc.input)
			if tc.expectErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.expectErr) {
					t.Fatalf("expected error containing %q, got %v", tc.expectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}
			if diff := cmp.Diff(tc.expect, result); diff != "" {
				t.Fatalf("decoded mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecoderDoesNotMutateInput(t *testing.T) {
	input := map[string]any{"host": "db:5432"}
	decoder := NewDecoder(WithPreHook[dbSettings](splitAddressPreHook))
	if _, err := decoder.Decode(Context{}, input); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if input["host"] != "db:5432" {
		t.Fatalf("expected input untouched, got %v", input)
	}
}

func TestDecoderUseNumber(t *testing.T) {
	type loose struct {
		Port any `json:"port"`
	}
	result, err := NewDecoder(WithUseNumber[loose]()).Decode(Context{}, map[string]any{"port": 6000})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := result.Port.(json.Number); !ok {
		t.Fatalf("expected json.Number, got %T", result.Port)
	}
}

func splitAddressPreHook(_ Context, payload map[string]any) (map[string]any, error) {
	host, ok := payload["host"].(string)
	if !ok || !strings.Contains(host, ":") {
		return payload, nil
	}
	parts := strings.Split(host, ":")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid address %q", host)
	}
	var port int
	if _, err := fmt.Sscanf(parts[1], "%d", &port); err != nil {
		return nil, err
	}
	payload["host"] = parts[0]
	payload["port"] = port
	return payload, nil
}

func scopeTagPostHook(ctx Context, settings *dbSettings) error {
	if settings == nil {
		return errors.New("settings is nil")
	}
	settings.Tags = append(settings.Tags, "scope:"+ctx.Scope)
	return nil
}

func rawDecoder(_ Context, payload map[string]any) (dbSettings, error) {
	raw, _ := payload["raw"].(string)
	var out dbSettings
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return dbSettings{}, err
	}
	return out, nil
}
