package overlay

import (
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-overlay/internal/hydrate"
)

// DecodeContext identifies the overlay passed to decode hooks.
type DecodeContext = hydrate.Context

// DecodeOption configures Decode.
type DecodeOption[T any] = hydrate.DecoderOption[T]

// DecodePreHook rewrites the merged value before it is decoded.
func DecodePreHook[T any](hook func(DecodeContext, map[string]any) (map[string]any, error)) DecodeOption[T] {
	return hydrate.WithPreHook[T](hook)
}

// DecodePostHook adjusts or validates the decoded value.
func DecodePostHook[T any](hook func(DecodeContext, *T) error) DecodeOption[T] {
	return hydrate.WithPostHook[T](hook)
}

// DecodeStrict rejects keys that T does not declare.
func DecodeStrict[T any]() DecodeOption[T] {
	return hydrate.WithDisallowUnknownFields[T]()
}

// DecodeUseNumber decodes numbers into json.Number for untyped fields.
func DecodeUseNumber[T any]() DecodeOption[T] {
	return hydrate.WithUseNumber[T]()
}

// DecodeWith configures the underlying json.Decoder directly.
func DecodeWith[T any](configure func(*json.Decoder)) DecodeOption[T] {
	return hydrate.WithDecoderConfig[T](configure)
}

// Decode binds the merged view of o into T using JSON field rules.
func Decode[T any](o *Overlay, opts ...DecodeOption[T]) (T, error) {
	var zero T
	if o == nil {
		return zero, fmt.Errorf("overlay: decode: %w", ErrNilStore)
	}
	fragments := o.Fragments()
	ctx := hydrate.Context{Scope: o.cfg.scope.Name, Keys: len(fragments)}
	value, err := hydrate.NewDecoder(opts...).Decode(ctx, foldFragments(fragments))
	if err != nil {
		return zero, fmt.Errorf("overlay: decode: %w", err)
	}
	return value, nil
}
