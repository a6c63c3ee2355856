// Package transcriber turns the accumulated audio chunks of one call turn
// into text, via a whisper.cpp whisper-server REST endpoint.
package transcriber

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"layeh.com/gopus"
)

// Transcriber turns a turn's accumulated audio chunks into text.
type Transcriber interface {
	Transcribe(ctx context.Context, chunks [][]byte, codec string, sampleRateHz int) (string, error)
}

// opusFrameMs is the frame duration assumed for every Opus packet handed
// to WhisperClient. 20 ms matches the interval the dialog transport's
// audio_chunk messages are expected to carry.
const opusFrameMs = 20

// WhisperClient is a Transcriber backed by a whisper.cpp whisper-server
// instance's POST /inference endpoint.
type WhisperClient struct {
	serverURL  string
	language   string
	httpClient *http.Client
}

// NewWhisperClient constructs a WhisperClient against serverURL (e.g.
// "http://localhost:8081").
func NewWhisperClient(serverURL, language string, timeout time.Duration) *WhisperClient {
	return &WhisperClient{
		serverURL:  serverURL,
		language:   language,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Transcribe decodes chunks to PCM16 (passing already-PCM16 chunks
// through unchanged when codec isn't "opus"), wraps the result in a WAV
// container, and submits it to whisper.cpp as a multipart upload.
func (c *WhisperClient) Transcribe(ctx context.Context, chunks [][]byte, codec string, sampleRateHz int) (string, error) {
	pcm, err := toPCM16(chunks, codec, sampleRateHz)
	if err != nil {
		return "", fmt.Errorf("transcriber: decode audio: %w", err)
	}
	if len(pcm) == 0 {
		return "", nil
	}

	wav := encodeWAV(pcm, sampleRateHz, 1)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("transcriber: create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return "", fmt.Errorf("transcriber: write wav data: %w", err)
	}
	if c.language != "" {
		if err := mw.WriteField("language", c.language); err != nil {
			return "", fmt.Errorf("transcriber: write language field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("transcriber: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/inference", &body)
	if err != nil {
		return "", fmt.Errorf("transcriber: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcriber: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("transcriber: server returned HTTP %d: %s", resp.StatusCode, string(data))
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("transcriber: parse response: %w", err)
	}
	return result.Text, nil
}

// toPCM16 concatenates chunks into a single PCM16LE byte slice, decoding
// each chunk with Opus first when codec == "opus". Any other codec value
// is assumed to already be PCM16LE and passed through unchanged.
func toPCM16(chunks [][]byte, codec string, sampleRateHz int) ([]byte, error) {
	if codec != "opus" {
		var out []byte
		for _, chunk := range chunks {
			out = append(out, chunk...)
		}
		return out, nil
	}

	decoder, err := gopus.NewDecoder(sampleRateHz, 1)
	if err != nil {
		return nil, fmt.Errorf("create opus decoder: %w", err)
	}
	frameSize := sampleRateHz * opusFrameMs / 1000

	var out []byte
	for _, chunk := range chunks {
		samples, err := decoder.Decode(chunk, frameSize, false)
		if err != nil {
			return nil, fmt.Errorf("opus decode: %w", err)
		}
		out = append(out, int16sToBytes(samples)...)
	}
	return out, nil
}

func int16sToBytes(pcm []int16) []byte {
	b := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		b[i*2] = byte(s)
		b[i*2+1] = byte(s >> 8)
	}
	return b
}

// encodeWAV wraps raw 16-bit signed little-endian PCM data in a standard
// RIFF/WAV container.
func encodeWAV(pcm []byte, sampleRate, channels int) []byte {
	const bitsPerSample = 16
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataSize := len(pcm)

	buf := make([]byte, 44+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1)
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bitsPerSample))

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], pcm)

	return buf
}
