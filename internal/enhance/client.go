package enhance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://auphonic.com/api"
	defaultUserAgent   = "wordreel/1.0"
	defaultHTTPTimeout = 5 * time.Minute
)

// Preset is the fixed Auphonic processing configuration applied to every
// enhancement request.
type Preset struct {
	DenoiseMethod  string
	DenoiseAmount  int
	DehumFreq      int
	DehumAmount    int
	Leveler        bool
	LoudnessTarget int
	DeverbAmount   int
	DebreathAmount int
	OutputFormat   string
	OutputBitrate  int
}

// DefaultPreset mirrors the original implementation's defaults: dynamic
// denoising at 6dB, auto dehum at 6dB, leveler and loudness normalization
// on targeting -16 LUFS, 3dB deverb and debreath, mp3 output at 192kbps.
func DefaultPreset() Preset {
	return Preset{
		DenoiseMethod:  "dynamic",
		DenoiseAmount:  6,
		DehumFreq:      0,
		DehumAmount:    6,
		Leveler:        true,
		LoudnessTarget: -16,
		DeverbAmount:   3,
		DebreathAmount: 3,
		OutputFormat:   "mp3",
		OutputBitrate:  192,
	}
}

// Config describes the Auphonic client configuration.
type Config struct {
	APIToken   string
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
	Preset     Preset
}

// Client wraps the Auphonic production API.
type Client struct {
	apiToken  string
	userAgent string
	baseURL   *url.URL
	http      *http.Client
	preset    Preset
}

// NewAPIClient creates a Client from the supplied configuration.
func NewAPIClient(cfg Config) (*Client, error) {
	token := strings.TrimSpace(cfg.APIToken)
	if token == "" {
		return nil, errors.New("enhance: api token is required")
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("enhance: parse base url: %w", err)
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	preset := cfg.Preset
	if preset == (Preset{}) {
		preset = DefaultPreset()
	}
	return &Client{
		apiToken:  token,
		userAgent: userAgent,
		baseURL:   baseURL,
		http:      client,
		preset:    preset,
	}, nil
}

// Status is the Auphonic production status string.
type Status string

const (
	StatusWaiting    Status = "Waiting"
	StatusProcessing Status = "Processing"
	StatusEncoding   Status = "Encoding"
	StatusUploading  Status = "Uploading"
	StatusDone       Status = "Done"
	StatusError      Status = "Error"
)

// IsTerminal reports whether a production status needs no further polling.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusError
}

// ProductionStatus reports the polled state of a production.
type ProductionStatus struct {
	UUID         string
	Status       Status
	ErrorMessage string
	OutputFiles  []OutputFile
}

// OutputFile describes a processed output file available for download.
type OutputFile struct {
	Format      string
	DownloadURL string
}

// CreateProduction creates a new Auphonic production for inputFile and
// uploads it, returning the production UUID.
func (c *Client) CreateProduction(ctx context.Context, inputFile string) (string, error) {
	if _, err := os.Stat(inputFile); err != nil {
		return "", fmt.Errorf("enhance: input file not found: %w", err)
	}

	algorithms := map[string]any{
		"denoisemethod": c.preset.DenoiseMethod,
		"denoiseamount": c.preset.DenoiseAmount,
		"dehum":         c.preset.DehumFreq,
		"dehumamount":   c.preset.DehumAmount,
	}
	if c.preset.Leveler {
		algorithms["leveler"] = 0
	}
	if c.preset.LoudnessTarget != 0 {
		algorithms["normloudness"] = 0
		algorithms["loudnesstarget"] = c.preset.LoudnessTarget
	}
	if supportsDeverb(c.preset.DenoiseMethod) && c.preset.DeverbAmount != 0 {
		algorithms["deverbamount"] = c.preset.DeverbAmount
	}
	if supportsDebreath(c.preset.DenoiseMethod) && c.preset.DebreathAmount != 0 {
		algorithms["debreathamount"] = c.preset.DebreathAmount
	}

	payload := map[string]any{
		"metadata": map[string]any{
			"title": strings.TrimSuffix(filepath.Base(inputFile), filepath.Ext(inputFile)),
		},
		"algorithms": algorithms,
		"output_files": []map[string]any{
			{"format": c.preset.OutputFormat, "bitrate": c.preset.OutputBitrate},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("enhance: encode production payload: %w", err)
	}

	endpoint := c.baseURL.JoinPath("productions.json")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("enhance: build create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.applyHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("enhance: create production request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("enhance: create production failed (%s): %s", resp.Status, readLimited(resp.Body))
	}

	var created struct {
		Data struct {
			UUID string `json:"uuid"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("enhance: decode create response: %w", err)
	}
	if created.Data.UUID == "" {
		return "", errors.New("enhance: create response missing uuid")
	}

	if err := c.upload(ctx, created.Data.UUID, inputFile); err != nil {
		return "", err
	}
	return created.Data.UUID, nil
}

func (c *Client) upload(ctx context.Context, productionUUID, inputFile string) error {
	f, err := os.Open(inputFile)
	if err != nil {
		return fmt.Errorf("enhance: open input file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("input_file", filepath.Base(inputFile))
	if err != nil {
		return fmt.Errorf("enhance: build upload form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("enhance: read input file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("enhance: close upload form: %w", err)
	}

	endpoint := c.baseURL.JoinPath("production", productionUUID, "upload.json")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), &buf)
	if err != nil {
		return fmt.Errorf("enhance: build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.applyHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("enhance: upload request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("enhance: upload failed (%s): %s", resp.Status, readLimited(resp.Body))
	}
	return nil
}

// StartProduction begins processing an uploaded production.
func (c *Client) StartProduction(ctx context.Context, productionUUID string) error {
	endpoint := c.baseURL.JoinPath("production", productionUUID, "start.json")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("enhance: build start request: %w", err)
	}
	c.applyHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("enhance: start request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("enhance: start production failed (%s): %s", resp.Status, readLimited(resp.Body))
	}
	return nil
}

// GetStatus polls the production's current state.
func (c *Client) GetStatus(ctx context.Context, productionUUID string) (ProductionStatus, error) {
	endpoint := c.baseURL.JoinPath("production", productionUUID + ".json")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return ProductionStatus{}, fmt.Errorf("enhance: build status request: %w", err)
	}
	c.applyHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return ProductionStatus{}, fmt.Errorf("enhance: status request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ProductionStatus{}, fmt.Errorf("enhance: get status failed (%s): %s", resp.Status, readLimited(resp.Body))
	}

	var decoded struct {
		Data struct {
			UUID         string `json:"uuid"`
			StatusString string `json:"status_string"`
			ErrorMessage string `json:"error_message"`
			OutputFiles  []struct {
				Format      string `json:"format"`
				DownloadURL string `json:"download_url"`
			} `json:"output_files"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ProductionStatus{}, fmt.Errorf("enhance: decode status response: %w", err)
	}

	outputs := make([]OutputFile, 0, len(decoded.Data.OutputFiles))
	for _, of := range decoded.Data.OutputFiles {
		outputs = append(outputs, OutputFile{Format: of.Format, DownloadURL: of.DownloadURL})
	}
	return ProductionStatus{
		UUID:         decoded.Data.UUID,
		Status:       Status(decoded.Data.StatusString),
		ErrorMessage: decoded.Data.ErrorMessage,
		OutputFiles:  outputs,
	}, nil
}

// Download retrieves the production's first output file to destPath.
func (c *Client) Download(ctx context.Context, status ProductionStatus, destPath string) error {
	if len(status.OutputFiles) == 0 {
		return errors.New("enhance: no output files available")
	}
	downloadURL := status.OutputFiles[0].DownloadURL
	if downloadURL == "" {
		return errors.New("enhance: output file missing download url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return fmt.Errorf("enhance: build download request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("enhance: download request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("enhance: download failed (%s): %s", resp.Status, readLimited(resp.Body))
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("enhance: prepare download dir: %w", err)
	}
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("enhance: create download file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("enhance: write downloaded file: %w", err)
	}
	return nil
}

func (c *Client) applyHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
}

func supportsDeverb(denoiseMethod string) bool {
	switch denoiseMethod {
	case "static", "dynamic", "speech_isolation":
		return true
	default:
		return false
	}
}

func supportsDebreath(denoiseMethod string) bool {
	switch denoiseMethod {
	case "dynamic", "speech_isolation":
		return true
	default:
		return false
	}
}

func readLimited(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 4096))
	return strings.TrimSpace(string(body))
}
