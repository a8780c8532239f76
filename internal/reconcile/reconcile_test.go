package reconcile_test

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kverrors "github.com/systmms/kvensure/internal/errors"
	"github.com/systmms/kvensure/internal/logging"
	"github.com/systmms/kvensure/internal/reconcile"
	"github.com/systmms/kvensure/tests/fakes"
)

const testVaultURI = "https://contoso.vault.azure.net/"

func newReconciler(client *fakes.FakeSecretClient) *reconcile.Reconciler {
	return reconcile.New(client, logging.New(false, true))
}

func presentSpec(name, value string) reconcile.SecretSpec {
	return reconcile.SecretSpec{
		Name:     name,
		Value:    value,
		State:    reconcile.StatePresent,
		VaultURI: testVaultURI,
	}
}

func absentSpec(name string) reconcile.SecretSpec {
	return reconcile.SecretSpec{
		Name:     name,
		State:    reconcile.StateAbsent,
		VaultURI: testVaultURI,
	}
}

func TestReconcile_CreateInEmptyVault(t *testing.T) {
	client := fakes.NewFakeSecretClient(testVaultURI)
	r := newReconciler(client)

	result, err := r.Reconcile(context.Background(), presentSpec("MySecret", "My_Pass_Sec"), false)
	require.NoError(t, err)

	assert.True(t, result.Changed)
	assert.Equal(t, reconcile.StatusCreated, result.State.Status)
	assert.Regexp(t, regexp.MustCompile(`^`+regexp.QuoteMeta(testVaultURI)+`secrets/MySecret/[0-9a-f]+$`), result.State.ID)
	assert.Equal(t, "My_Pass_Sec", client.Secrets["MySecret"].Value)
}

func TestReconcile_Idempotence(t *testing.T) {
	client := fakes.NewFakeSecretClient(testVaultURI)
	r := newReconciler(client)
	spec := presentSpec("MySecret", "My_Pass_Sec")

	first, err := r.Reconcile(context.Background(), spec, false)
	require.NoError(t, err)
	require.True(t, first.Changed)
	writesAfterFirst := client.WriteCount()

	second, err := r.Reconcile(context.Background(), spec, false)
	require.NoError(t, err)

	assert.False(t, second.Changed)
	assert.Empty(t, second.State.Status)
	assert.NotEmpty(t, second.State.ID, "no-op on an existing secret still reports its identifier")
	assert.Equal(t, writesAfterFirst, client.WriteCount(), "second identical invocation must not write")
}

func TestReconcile_UpdateOnValueDrift(t *testing.T) {
	client := fakes.NewFakeSecretClient(testVaultURI)
	client.AddSecret("MySecret", "old-value")
	r := newReconciler(client)

	result, err := r.Reconcile(context.Background(), presentSpec("MySecret", "new-value"), false)
	require.NoError(t, err)

	assert.True(t, result.Changed)
	assert.Equal(t, reconcile.StatusCreated, result.State.Status)
	assert.NotEmpty(t, result.State.ID)
	assert.Equal(t, "new-value", client.Secrets["MySecret"].Value)
}

func TestReconcile_ExactValueComparison(t *testing.T) {
	// Comparison is exact string equality, no normalization.
	client := fakes.NewFakeSecretClient(testVaultURI)
	client.AddSecret("MySecret", "value")
	r := newReconciler(client)

	result, err := r.Reconcile(context.Background(), presentSpec("MySecret", "value "), false)
	require.NoError(t, err)
	assert.True(t, result.Changed)

	client2 := fakes.NewFakeSecretClient(testVaultURI)
	client2.AddSecret("MySecret", "Value")
	result, err = newReconciler(client2).Reconcile(context.Background(), presentSpec("MySecret", "Value"), false)
	require.NoError(t, err)
	assert.False(t, result.Changed)
}

func TestReconcile_DeleteExisting(t *testing.T) {
	client := fakes.NewFakeSecretClient(testVaultURI)
	client.AddSecret("MySecret", "My_Pass_Sec")
	r := newReconciler(client)

	result, err := r.Reconcile(context.Background(), absentSpec("MySecret"), false)
	require.NoError(t, err)

	assert.True(t, result.Changed)
	assert.Equal(t, reconcile.StatusDeleted, result.State.Status)
	assert.NotEmpty(t, result.State.ID)
	assert.NotContains(t, client.Secrets, "MySecret")
}

func TestReconcile_AbsentMissingIsNoOp(t *testing.T) {
	client := fakes.NewFakeSecretClient(testVaultURI)
	r := newReconciler(client)

	result, err := r.Reconcile(context.Background(), absentSpec("MySecret"), false)
	require.NoError(t, err)

	assert.False(t, result.Changed)
	assert.Empty(t, result.State.Status)
	assert.Empty(t, result.State.ID)
	assert.Zero(t, client.WriteCount(), "absent on a missing secret must not write")
}

func TestReconcile_CheckModeNeverWrites(t *testing.T) {
	tests := []struct {
		name        string
		seed        func(*fakes.FakeSecretClient)
		spec        reconcile.SecretSpec
		wantChanged bool
		wantStatus  string
	}{
		{
			name:        "prospective_create",
			seed:        func(*fakes.FakeSecretClient) {},
			spec:        presentSpec("MySecret", "My_Pass_Sec"),
			wantChanged: true,
			wantStatus:  reconcile.StatusCreated,
		},
		{
			name:        "prospective_update",
			seed:        func(c *fakes.FakeSecretClient) { c.AddSecret("MySecret", "old") },
			spec:        presentSpec("MySecret", "new"),
			wantChanged: true,
			wantStatus:  reconcile.StatusCreated,
		},
		{
			name:        "prospective_delete",
			seed:        func(c *fakes.FakeSecretClient) { c.AddSecret("MySecret", "v") },
			spec:        absentSpec("MySecret"),
			wantChanged: true,
			wantStatus:  reconcile.StatusDeleted,
		},
		{
			name:        "no_change",
			seed:        func(c *fakes.FakeSecretClient) { c.AddSecret("MySecret", "v") },
			spec:        presentSpec("MySecret", "v"),
			wantChanged: false,
			wantStatus:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := fakes.NewFakeSecretClient(testVaultURI)
			tt.seed(client)
			r := newReconciler(client)

			result, err := r.Reconcile(context.Background(), tt.spec, true)
			require.NoError(t, err)

			assert.Equal(t, tt.wantChanged, result.Changed)
			assert.Equal(t, tt.wantStatus, result.State.Status)
			assert.Zero(t, client.WriteCount(), "check mode must never issue a write")
		})
	}
}

func TestReconcile_ValidityWindow(t *testing.T) {
	client := fakes.NewFakeSecretClient(testVaultURI)
	r := newReconciler(client)

	spec := presentSpec("MySecret", "v")
	spec.ValidFrom = "2026-01-01T00:00:00Z"
	spec.Expiry = "2027-06-30"
	spec.ContentType = "password"
	spec.Tags = map[string]string{"env": "prod"}

	result, err := r.Reconcile(context.Background(), spec, false)
	require.NoError(t, err)
	require.True(t, result.Changed)

	stored := client.Secrets["MySecret"]
	require.NotNil(t, stored.Attributes.NotBefore)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), stored.Attributes.NotBefore.UTC())
	require.NotNil(t, stored.Attributes.Expires)
	assert.Equal(t, time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC), stored.Attributes.Expires.UTC())
	require.NotNil(t, stored.ContentType)
	assert.Equal(t, "password", *stored.ContentType)
	require.NotNil(t, stored.Tags["env"])
	assert.Equal(t, "prod", *stored.Tags["env"])
}

func TestReconcile_MalformedDateIsHardFailure(t *testing.T) {
	client := fakes.NewFakeSecretClient(testVaultURI)
	r := newReconciler(client)

	spec := presentSpec("MySecret", "v")
	spec.Expiry = "not-a-date"

	_, err := r.Reconcile(context.Background(), spec, false)
	require.Error(t, err)
	assert.IsType(t, kverrors.ValidationError{}, err)
	assert.Zero(t, client.WriteCount(), "validation failures must abort before any write")
}

func TestReconcile_PresentWithoutValue(t *testing.T) {
	client := fakes.NewFakeSecretClient(testVaultURI)
	r := newReconciler(client)

	_, err := r.Reconcile(context.Background(), presentSpec("MySecret", ""), false)
	require.Error(t, err)
	assert.IsType(t, kverrors.ValidationError{}, err)
}

func TestReconcile_RemoteReadErrorIsFatal(t *testing.T) {
	client := fakes.NewFakeSecretClient(testVaultURI)
	client.GetErr = fmt.Errorf("operation returned Forbidden (403)")
	r := newReconciler(client)

	_, err := r.Reconcile(context.Background(), presentSpec("MySecret", "v"), false)
	require.Error(t, err)

	var userErr kverrors.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Contains(t, userErr.Suggestion, "access policies")
	assert.Zero(t, client.WriteCount())
}

func TestReconcile_WriteErrorSurfaces(t *testing.T) {
	client := fakes.NewFakeSecretClient(testVaultURI)
	client.SetErr = fmt.Errorf("Request was throttled (429)")
	r := newReconciler(client)

	_, err := r.Reconcile(context.Background(), presentSpec("MySecret", "v"), false)
	require.Error(t, err)

	var userErr kverrors.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Contains(t, userErr.Suggestion, "throttled")
}

func TestReconcile_ResultNeverCarriesValue(t *testing.T) {
	client := fakes.NewFakeSecretClient(testVaultURI)
	r := newReconciler(client)

	result, err := r.Reconcile(context.Background(), presentSpec("MySecret", "super-sensitive"), false)
	require.NoError(t, err)

	assert.NotContains(t, fmt.Sprintf("%+v", result), "super-sensitive")
}
