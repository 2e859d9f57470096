package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

type speechRequest struct {
	Text2SpeechID int64 `json:"text2speech_id"`
}

type audioRequest struct {
	AudioID int64 `json:"audio_id"`
}

type videoRequest struct {
	VideoID int64 `json:"video_id"`
}

type mediaResponse struct {
	TTSURL   string `json:"tts_url"`
	AudioURL string `json:"audio_url"`
	VideoURL string `json:"video_url"`
}

// SpeechURL resolves a text-to-speech record to a presigned audio URL.
func (g *Gateway) SpeechURL(ctx context.Context, id int64) (string, error) {
	out, err := g.mediaURL(ctx, SpeechPath, speechRequest{Text2SpeechID: id})
	if err != nil {
		return "", fmt.Errorf("[gateway SpeechURL] %w", err)
	}
	return mediaOrErr(out.TTSURL, "SpeechURL")
}

// AudioURL resolves a recorded audio record to a presigned audio URL.
func (g *Gateway) AudioURL(ctx context.Context, id int64) (string, error) {
	out, err := g.mediaURL(ctx, AudioPath, audioRequest{AudioID: id})
	if err != nil {
		return "", fmt.Errorf("[gateway AudioURL] %w", err)
	}
	return mediaOrErr(out.AudioURL, "AudioURL")
}

func (g *Gateway) VideoURL(ctx context.Context, id int64) (string, error) {
	out, err := g.mediaURL(ctx, VideoPath, videoRequest{VideoID: id})
	if err != nil {
		return "", fmt.Errorf("[gateway VideoURL] %w", err)
	}
	return mediaOrErr(out.VideoURL, "VideoURL")
}

func (g *Gateway) mediaURL(ctx context.Context, path string, in any) (*mediaResponse, error) {
	var out mediaResponse
	if _, err := g.client.DoJSON(ctx, http.MethodPost, path, in, &out); err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func mediaOrErr(url, op string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("[gateway %s] %w", op, ErrMissingMediaURL)
	}
	return url, nil
}

// DownloadMedia streams a presigned media URL into w. The URL carries its own
// signature so no bearer token is sent and no refresh is attempted.
func (g *Gateway) DownloadMedia(ctx context.Context, signedURL string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, signedURL, nil)
	if err != nil {
		return 0, fmt.Errorf("[gateway DownloadMedia] %w", err)
	}

	resp, err := g.media.Do(req)
	if err != nil {
		return 0, fmt.Errorf("[gateway DownloadMedia] %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return 0, fmt.Errorf("[gateway DownloadMedia] %w", ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return 0, fmt.Errorf("[gateway DownloadMedia] unexpected status %d", resp.StatusCode)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("[gateway DownloadMedia] failed after %d bytes: %w", n, err)
	}
	g.logger.Debug().Int64("bytes", n).Msg("media downloaded")
	return n, nil
}
