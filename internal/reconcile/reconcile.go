// Package reconcile converges one Azure Key Vault secret to its desired
// state with at most one read and at most one write per invocation.
package reconcile

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	kverrors "github.com/systmms/kvensure/internal/errors"
	"github.com/systmms/kvensure/internal/keyvault"
	"github.com/systmms/kvensure/internal/logging"
	"github.com/systmms/kvensure/internal/metrics"
	"github.com/systmms/kvensure/internal/secure"
)

// Status labels reported after a converging write.
const (
	StatusCreated = "Created"
	StatusDeleted = "Deleted"
)

// Reconciler drives one secret to its desired state.
type Reconciler struct {
	client  keyvault.SecretClientAPI
	logger  *logging.Logger
	metrics *metrics.Recorder
}

// Option is a functional option for configuring a Reconciler.
type Option func(*Reconciler)

// WithMetrics records remote call durations on the given recorder.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(r *Reconciler) {
		r.metrics = rec
	}
}

// New creates a reconciler bound to one vault client.
func New(client keyvault.SecretClientAPI, logger *logging.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		client: client,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile reads the current secret, decides whether a change is needed,
// and unless checkMode is set performs the minimal write to converge.
// Identical repeated invocations report changed=false.
func (r *Reconciler) Reconcile(ctx context.Context, spec SecretSpec, checkMode bool) (Result, error) {
	if err := spec.Validate(); err != nil {
		return Result{}, err
	}

	current, found, err := r.fetch(ctx, spec.Name)
	if err != nil {
		return Result{}, err
	}

	changed, err := r.diff(spec, current, found)
	if err != nil {
		return Result{}, err
	}

	result := Result{Changed: changed}
	if found {
		result.State.ID = current.id
	}

	if !changed {
		return result, nil
	}

	if checkMode {
		// Report the prospective label without touching the vault.
		if spec.State == StatePresent {
			result.State.Status = StatusCreated
		} else {
			result.State.Status = StatusDeleted
		}
		return result, nil
	}

	switch spec.State {
	case StatePresent:
		id, err := r.createOrUpdate(ctx, spec)
		if err != nil {
			return Result{}, err
		}
		result.State = SecretRecord{ID: id, Status: StatusCreated}
	case StateAbsent:
		id, err := r.delete(ctx, spec.Name)
		if err != nil {
			return Result{}, err
		}
		result.State = SecretRecord{ID: id, Status: StatusDeleted}
	}

	return result, nil
}

// observed is the internal intermediate used for the diff. Its value lives
// in a protected buffer and never leaves this package.
type observed struct {
	id    string
	value *secure.Buffer
}

// fetch reads the latest version of the secret. A missing secret is a
// normal outcome (found=false); any other failure is fatal.
func (r *Reconciler) fetch(ctx context.Context, name string) (observed, bool, error) {
	start := time.Now()
	resp, err := r.client.GetSecret(ctx, name, "", nil)
	r.metrics.ObserveRemote("get", time.Since(start))

	if err != nil {
		if keyvault.IsNotFound(err) {
			r.logger.Debug("secret %s not found in vault", name)
			return observed{}, false, nil
		}
		return observed{}, false, kverrors.UserError{
			Message:    "Failed to read secret " + name,
			Details:    err.Error(),
			Suggestion: keyvault.ErrorSuggestion(err),
			Err:        err,
		}
	}

	cur := observed{}
	if resp.ID != nil {
		cur.id = string(*resp.ID)
	}
	if resp.Value != nil {
		cur.value = secure.NewBufferString(*resp.Value)
	}
	return cur, true, nil
}

// diff computes whether a write is needed. Value comparison is exact, no
// normalization.
func (r *Reconciler) diff(spec SecretSpec, current observed, found bool) (bool, error) {
	switch {
	case !found:
		return spec.State == StatePresent, nil
	case spec.State == StateAbsent:
		return true, nil
	case current.value == nil:
		return true, nil
	default:
		same, err := current.value.EqualString(spec.Value)
		if err != nil {
			return false, err
		}
		return !same, nil
	}
}

func (r *Reconciler) createOrUpdate(ctx context.Context, spec SecretSpec) (string, error) {
	notBefore, err := parseWhen("secret_valid_from", spec.ValidFrom)
	if err != nil {
		return "", err
	}
	expires, err := parseWhen("secret_expiry", spec.Expiry)
	if err != nil {
		return "", err
	}

	params := azsecrets.SetSecretParameters{
		Value: to.Ptr(spec.Value),
	}
	if spec.ContentType != "" {
		params.ContentType = to.Ptr(spec.ContentType)
	}
	if len(spec.Tags) > 0 {
		params.Tags = make(map[string]*string, len(spec.Tags))
		for k, v := range spec.Tags {
			params.Tags[k] = to.Ptr(v)
		}
	}
	if notBefore != nil || expires != nil {
		params.SecretAttributes = &azsecrets.SecretAttributes{
			NotBefore: notBefore,
			Expires:   expires,
		}
	}

	start := time.Now()
	resp, err := r.client.SetSecret(ctx, spec.Name, params, nil)
	r.metrics.ObserveRemote("set", time.Since(start))
	if err != nil {
		return "", kverrors.UserError{
			Message:    "Failed to set secret " + spec.Name,
			Details:    logging.Redact(err.Error(), []string{spec.Value}),
			Suggestion: keyvault.ErrorSuggestion(err),
		}
	}

	if resp.ID == nil {
		return "", nil
	}
	return string(*resp.ID), nil
}

func (r *Reconciler) delete(ctx context.Context, name string) (string, error) {
	start := time.Now()
	resp, err := r.client.DeleteSecret(ctx, name, nil)
	r.metrics.ObserveRemote("delete", time.Since(start))
	if err != nil {
		return "", kverrors.UserError{
			Message:    "Failed to delete secret " + name,
			Details:    err.Error(),
			Suggestion: keyvault.ErrorSuggestion(err),
			Err:        err,
		}
	}

	if resp.ID == nil {
		return "", nil
	}
	return string(*resp.ID), nil
}
