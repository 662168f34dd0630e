package configcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// KeySpecFromJSON — описание ключа из JSON-объекта.
func KeySpecFromJSON(ctx context.Context, validator *KeyValidator, raw []byte) (*KeySpec, error) {
	var spec KeySpec
	if err := decodeStrict(raw, &spec); err != nil {
		return nil, err
	}
	if err := validator.Validate(ctx, &spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

// KeySpecsFromJSON — описания ключей из JSON-массива. Первое невалидное описание — ошибка.
func KeySpecsFromJSON(ctx context.Context, validator *KeyValidator, raw []byte) ([]KeySpec, error) {
	var specs []KeySpec
	if err := decodeStrict(raw, &specs); err != nil {
		return nil, err
	}
	for i := range specs {
		if err := validator.Validate(ctx, &specs[i]); err != nil {
			return nil, fmt.Errorf("keys[%d]: %w", i, err)
		}
	}
	return specs, nil
}

func decodeStrict(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid json: %v", ErrInvalidKey, err)
	}
	// гарантируем отсутствие данных после значения
	if err := dec.Decode(new(struct{})); err != io.EOF {
		return fmt.Errorf("%w: invalid json: trailing data", ErrInvalidKey)
	}
	return nil
}
