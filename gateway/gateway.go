// Package gateway exposes the REST gateway's endpoints as typed calls on top of
// the refreshing restclient.
package gateway

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-session-client/restclient"
)

const (
	TokenPath          = "/authenticate/api/token/"
	VerifyPath         = "/authenticate/api/token/verify/"
	ObtainPath         = "/authenticate/api/token/obtain/"
	UpdatePasswordPath = "/authenticate/api/update_password/"

	LLMTaskPath       = "/queue_task/llm/"
	CustomLLMTaskPath = "/queue_task/custom_llm/"
	LLMBatchTaskPath  = "/queue_task/llm_batch/"
	taskStatusPath    = "/queue_task/%d/status/"

	downloadPath     = "/llm/download/%d"
	DownloadManyPath = "/llm/download"

	SpeechPath = "/hardware/speech/"
	AudioPath  = "/hardware/audio/get_audio_data/"
	VideoPath  = "/hardware/video/get_video_data/"
)

type Option func(*Gateway)

func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithMediaClient sets the client used to fetch presigned media URLs.
// Defaults to a plain client with the REST client's timeout.
func WithMediaClient(c *http.Client) Option {
	return func(g *Gateway) {
		g.media = c
	}
}

// Gateway groups the REST endpoints the session uses.
type Gateway struct {
	client *restclient.Client
	media  *http.Client
	logger zerolog.Logger
}

func New(client *restclient.Client, opts ...Option) *Gateway {
	g := &Gateway{
		client: client,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.media == nil {
		g.media = &http.Client{Timeout: client.HTTPClient().Timeout}
	}
	return g
}

// Client returns the underlying REST client.
func (g *Gateway) Client() *restclient.Client {
	return g.client
}
