package httpapi

import (
	"testing"

	"threadlab/testutil"
)

func TestAdapterUsesFacadesOnly(t *testing.T) {
	module := testutil.RequireModulePath(t, ".")
	testutil.AssertNoDirectImports(t, ".", testutil.UnderModule(module, "internal/infra"),
		"adapters reach drivers through internal/blob and internal/core")
}
