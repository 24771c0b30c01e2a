package authz_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofrapos/sofra/pkg/authz"
)

func TestParsePermission(t *testing.T) {
	p, err := authz.ParsePermission("ORDER_READ")
	require.NoError(t, err)
	assert.Equal(t, authz.ResourceOrder, p.Resource)
	assert.Equal(t, authz.ActionRead, p.Action)
	assert.Equal(t, "ORDER_READ", p.String())
}

func TestParsePermissionCompoundResource(t *testing.T) {
	// The resource set is open-ended: multi-word resources keep their
	// underscores, only the trailing segment is the action.
	p, err := authz.ParsePermission("STOCK_ENTRY_READ")
	require.NoError(t, err)
	assert.Equal(t, authz.Resource("STOCK_ENTRY"), p.Resource)
	assert.Equal(t, authz.ActionRead, p.Action)
}

func TestParsePermissionRejectsMalformed(t *testing.T) {
	for _, tok := range []string{
		"",
		"ORDER",
		"ORDER_",
		"_READ",
		"ORDER_VIEW",  // unknown action
		"order_read",  // lowercase
		"ORDER-READ",  // wrong separator
		"ORDER_READ ", // trailing junk
	} {
		_, err := authz.ParsePermission(tok)
		assert.Error(t, err, "token %q should not parse", tok)
	}
}

func TestParsePermissionsDropsBadTokens(t *testing.T) {
	set, dropped := authz.ParsePermissions([]string{
		"ORDER_READ", "garbage", "MENU_UPDATE", "ORDER_VIEW",
	})
	assert.Equal(t, 2, dropped)
	assert.True(t, set.Has(authz.Perm(authz.ResourceOrder, authz.ActionRead)))
	assert.True(t, set.Has(authz.Perm(authz.ResourceMenu, authz.ActionUpdate)))
	assert.Len(t, set, 2)
}

func TestPermissionJSONRoundTrip(t *testing.T) {
	raw, err := json.Marshal(authz.Perm(authz.ResourcePOS, authz.ActionCreate))
	require.NoError(t, err)
	assert.Equal(t, `"POS_CREATE"`, string(raw))

	var p authz.Permission
	require.NoError(t, json.Unmarshal(raw, &p))
	assert.Equal(t, authz.Perm(authz.ResourcePOS, authz.ActionCreate), p)

	assert.Error(t, json.Unmarshal([]byte(`"NOT A TOKEN"`), &p))
}
