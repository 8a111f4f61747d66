package app

import (
	"testing"

	"go.uber.org/fx"
)

func TestGraphsResolve(t *testing.T) {
	for name, opts := range map[string]fx.Option{"infra": Infra, "core": Core, "http": HTTP} {
		t.Run(name, func(t *testing.T) {
			if err := fx.ValidateApp(opts); err != nil {
				t.Fatalf("validate %s: %v", name, err)
			}
		})
	}
}
