package narrative

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/soteria-soc/soteria/config"
)

var remoteJSON = jsoniter.ConfigCompatibleWithStandardLibrary

//RemoteBackend asks an external language-model service to write the
//narrative. Any failure is reported as a BackendError so the caller
//can fall back to the template backend.
type RemoteBackend struct {
	client *http.Client
	url    string
	model  string
	apiKey string
}

type (
	remoteRequest struct {
		Model    string    `json:"model,omitempty"`
		Evidence *Evidence `json:"evidence"`
	}

	remoteResponse struct {
		ThreatSummary     string `json:"threat_summary"`
		WhatHappened      string `json:"what_happened"`
		WhySuspicious     string `json:"why_suspicious"`
		RecommendedAction string `json:"recommended_action"`
	}
)

//NewRemoteBackend builds a backend from the narrative configuration
func NewRemoteBackend(conf *config.Config) (*RemoteBackend, error) {
	if conf.S.Narrative.URL == "" {
		return nil, &BackendError{
			Backend: "remote",
			Reason:  "no URL configured",
		}
	}
	return &RemoteBackend{
		client: &http.Client{Timeout: conf.R.Narrative.Timeout},
		url:    conf.S.Narrative.URL,
		model:  conf.S.Narrative.Model,
		apiKey: conf.R.Narrative.APIKey,
	}, nil
}

//Name identifies the backend in logs and run output
func (r *RemoteBackend) Name() string { return "remote" }

//Explain posts the evidence to the configured service and decodes the
//narrative it returns
func (r *RemoteBackend) Explain(ctx context.Context, evidence *Evidence) (*Explanation, error) {
	body, err := remoteJSON.Marshal(remoteRequest{Model: r.model, Evidence: evidence})
	if err != nil {
		return nil, &BackendError{Backend: "remote", Reason: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, &BackendError{Backend: "remote", Reason: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &BackendError{Backend: "remote", Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &BackendError{
			Backend: "remote",
			Reason:  fmt.Sprintf("unexpected status %d from %s", resp.StatusCode, r.url),
		}
	}

	payload, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, &BackendError{Backend: "remote", Reason: err.Error()}
	}

	var decoded remoteResponse
	if err := remoteJSON.Unmarshal(payload, &decoded); err != nil {
		return nil, &BackendError{Backend: "remote", Reason: err.Error()}
	}
	if decoded.ThreatSummary == "" || decoded.WhatHappened == "" {
		return nil, &BackendError{Backend: "remote", Reason: "incomplete narrative in response"}
	}

	return &Explanation{
		ThreatSummary:     decoded.ThreatSummary,
		WhatHappened:      decoded.WhatHappened,
		WhySuspicious:     decoded.WhySuspicious,
		RecommendedAction: decoded.RecommendedAction,
	}, nil
}
