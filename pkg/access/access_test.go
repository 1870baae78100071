package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmit_PermissiveBinding(t *testing.T) {
	ctx := Context{FullName: "my_module.add", Type: "procedure"}
	ok, err := Admit(ctx, "{full_name}", ".*")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAdmit_DeniedBySystemKeyhole(t *testing.T) {
	ctx := Context{FullName: "my_module.add", Type: "procedure"}
	ok, err := Admit(ctx, "{full_name}", `^system\.`)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdmit_AllowsSystemUnderKeyhole(t *testing.T) {
	ctx := Context{FullName: "system.list", Type: "procedure"}
	ok, err := Admit(ctx, "{full_name}", `^system\.`)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAdmit_UnresolvedFieldIsConfigError(t *testing.T) {
	ctx := Context{FullName: "x"}
	_, err := Admit(ctx, "{nonexistent_field}", ".*")
	var unresolved *UnresolvedFieldError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "nonexistent_field", unresolved.Field)
}

func TestRender_SplitForms(t *testing.T) {
	ctx := Context{RK: "a.b.c"}
	got, err := Render(ctx, "{rk_split}|{rk_revsplit}")
	require.NoError(t, err)
	assert.Equal(t, "a,b,c|c,b,a", got)
}
