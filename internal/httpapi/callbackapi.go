package httpapi

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/PaesslerAG/jsonpath"
	"github.com/gorilla/mux"

	"github.com/virtengine/virtengine-sub011/internal/apierrors"
	"github.com/virtengine/virtengine-sub011/internal/signing"
)

// providerSignatureHeader carries the base64 ed25519 signature a provider
// attaches to lifecycle/marketplace callbacks (spec §4.7 "callback
// endpoints require a provider-level signature").
const providerSignatureHeader = "X-Provider-Signature"

// ProviderKeyResolver looks up the ed25519 key a provider address should
// have signed a callback with.
type ProviderKeyResolver interface {
	ResolveProviderKey(providerAddress string) (ed25519.PublicKey, error)
}

// LifecycleAdvancer is the subset of lifecycle.Engine the callback router
// drives on a provider-reported lifecycle event.
type LifecycleAdvancer interface {
	AdvanceProvider(ctx context.Context, jobID string, event string) error
}

// CallbackAPI is the gorilla/mux router for provider lifecycle callbacks
// and marketplace settlement/usage-ack callbacks (spec §4.7
// "POST /api/v1/callbacks/lifecycle"), modeled on the teacher's
// datafeed-style tolerant payload parsing (gjson/jsonpath over rigid
// structs, since callback shapes vary by provider integration).
type CallbackAPI struct {
	keys    ProviderKeyResolver
	engine  LifecycleAdvancer
	onUsage func(providerAddress string, payload map[string]interface{}) error
}

// NewCallbackAPI builds a CallbackAPI. onUsageAck may be nil if marketplace
// usage-ack callbacks are not wired.
func NewCallbackAPI(keys ProviderKeyResolver, engine LifecycleAdvancer, onUsageAck func(providerAddress string, payload map[string]interface{}) error) *CallbackAPI {
	return &CallbackAPI{keys: keys, engine: engine, onUsage: onUsageAck}
}

// Router builds the mux.Router for this API.
func (a *CallbackAPI) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/callbacks/lifecycle", a.handleLifecycle).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/callbacks/marketplace", a.handleMarketplace).Methods(http.MethodPost)
	return r
}

// verifyProviderSignature reads and verifies raw against the provider
// signature header under the key resolved for providerAddress.
func (a *CallbackAPI) verifyProviderSignature(r *http.Request, raw []byte, providerAddress string) error {
	sigB64 := r.Header.Get(providerSignatureHeader)
	if sigB64 == "" {
		return apierrors.Unauthorized("missing " + providerSignatureHeader + " header")
	}
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return apierrors.Unauthorized("malformed provider signature")
	}
	pubKey, err := a.keys.ResolveProviderKey(providerAddress)
	if err != nil {
		return err
	}
	verifier := signing.DefaultVerifier{}
	if !verifier.Verify(pubKey, raw, sig) {
		return apierrors.BadSignature(nil)
	}
	return nil
}

func (a *CallbackAPI) handleLifecycle(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeHTTPError(w, r, apierrors.InvalidInput("body", "unreadable request body"))
		return
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		writeHTTPError(w, r, apierrors.InvalidInput("body", "malformed JSON"))
		return
	}

	providerAddress, _ := jsonpathString(payload, "$.providerAddress")
	jobID, _ := jsonpathString(payload, "$.jobId")
	event, _ := jsonpathString(payload, "$.event")
	if providerAddress == "" || jobID == "" || event == "" {
		writeHTTPError(w, r, apierrors.InvalidInput("body", "providerAddress, jobId, and event are required"))
		return
	}

	if err := a.verifyProviderSignature(r, raw, providerAddress); err != nil {
		writeHTTPError(w, r, err)
		return
	}

	if err := a.engine.AdvanceProvider(r.Context(), jobID, event); err != nil {
		if svcErr := apierrors.As(err); svcErr != nil && svcErr.Code == apierrors.CodeNotFound {
			// Unknown job: logged and dropped per failure semantics, not
			// surfaced as a retriable error to the caller.
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeHTTPError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *CallbackAPI) handleMarketplace(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeHTTPError(w, r, apierrors.InvalidInput("body", "unreadable request body"))
		return
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		writeHTTPError(w, r, apierrors.InvalidInput("body", "malformed JSON"))
		return
	}

	providerAddress, _ := jsonpathString(payload, "$.providerAddress")
	if providerAddress == "" {
		writeHTTPError(w, r, apierrors.InvalidInput("body", "providerAddress is required"))
		return
	}

	if err := a.verifyProviderSignature(r, raw, providerAddress); err != nil {
		writeHTTPError(w, r, err)
		return
	}

	if a.onUsage != nil {
		if err := a.onUsage(providerAddress, payload); err != nil {
			writeHTTPError(w, r, err)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// jsonpathString extracts a string field from a variable-shape callback
// payload, returning "" if the path is absent rather than erroring, since
// callback shapes vary across provider integrations.
func jsonpathString(payload map[string]interface{}, path string) (string, bool) {
	v, err := jsonpath.Get(path, payload)
	if err != nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
