// Package liveclasssvc implements the meeting providers hosting live classes.
package liveclasssvc

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/liveclass"
)

type (
	// HTTPProvider books meetings through the provider's REST API.
	HTTPProvider struct {
		client *resty.Client
	}

	providerError struct {
		Message string `json:"message"`
	}
)

var _ liveclass.Provider = (*HTTPProvider)(nil)

func NewHTTPProvider(conf *core.Config) *HTTPProvider {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(conf.LiveClass.ProviderURL, "/")).
		SetAuthToken(conf.LiveClass.APIKey).
		SetTimeout(conf.LiveClass.Timeout).
		SetHeader("Accept", "application/json").
		SetError(&providerError{})
	return &HTTPProvider{client: client}
}

func (p *HTTPProvider) CreateMeeting(ctx context.Context, req liveclass.MeetingRequest) (liveclass.Meeting, error) {
	var meeting liveclass.Meeting
	res, err := p.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&meeting).
		Post("/meetings")
	if err != nil {
		return liveclass.Meeting{}, errors.Wrap(err, "liveclass provider")
	}
	if res.IsError() {
		return liveclass.Meeting{}, responseError(res)
	}
	if meeting.ID == "" || meeting.JoinURL == "" {
		return liveclass.Meeting{}, errors.New("liveclass provider: incomplete meeting in response")
	}
	return meeting, nil
}

// CancelMeeting treats a meeting unknown to the provider as cancelled.
func (p *HTTPProvider) CancelMeeting(ctx context.Context, meetingID string) error {
	res, err := p.client.R().
		SetContext(ctx).
		SetPathParam("id", meetingID).
		Delete("/meetings/{id}")
	if err != nil {
		return errors.Wrap(err, "liveclass provider")
	}
	if res.IsError() && res.StatusCode() != http.StatusNotFound {
		return responseError(res)
	}
	return nil
}

func responseError(res *resty.Response) error {
	msg := res.Status()
	if pe, ok := res.Error().(*providerError); ok && pe.Message != "" {
		msg = pe.Message
	}
	return errors.Errorf("liveclass provider: %d: %s", res.StatusCode(), msg)
}

// LocalProvider hands out join URLs on the frontend without an external service (development).
type LocalProvider struct {
	baseURL string
}

var _ liveclass.Provider = (*LocalProvider)(nil)

func NewLocalProvider(conf *core.Config) *LocalProvider {
	return &LocalProvider{baseURL: strings.TrimSuffix(conf.FrontendBaseURL, "/")}
}

func (p *LocalProvider) CreateMeeting(_ context.Context, _ liveclass.MeetingRequest) (liveclass.Meeting, error) {
	id := uuid.New().String()
	return liveclass.Meeting{ID: id, JoinURL: fmt.Sprintf("%s/live/%s", p.baseURL, id)}, nil
}

func (p *LocalProvider) CancelMeeting(context.Context, string) error { return nil }

// NewProvider returns the HTTP provider when one is configured, the local one otherwise.
func NewProvider(conf *core.Config) liveclass.Provider {
	if conf.LiveClass.ProviderURL == "" {
		return NewLocalProvider(conf)
	}
	return NewHTTPProvider(conf)
}
