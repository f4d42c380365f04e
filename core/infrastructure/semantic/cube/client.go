package cube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/semlayer/semlayer/core/domain"
	"github.com/semlayer/semlayer/core/infrastructure/logging"
	apperrors "github.com/semlayer/semlayer/core/shared/errors"
)

const apiPath = "/cubejs-api/v1"

// continueWait is returned by /load while Cube is still computing the result
const continueWait = "Continue wait"

// pageSize is the number of rows handed to the caller at once
const pageSize = 1000

// Options tune the client
type Options struct {
	HTTPClient *http.Client

	// TokenTTL is the lifetime of tokens signed with the API secret
	TokenTTL time.Duration

	PollInitialInterval time.Duration
	PollMaxInterval     time.Duration
	PollTimeout         time.Duration
}

// Client talks to the Cube REST API
type Client struct {
	baseURL string
	token   string
	secret  []byte
	client  *http.Client
	opts    Options
	now     func() time.Time
}

// NewClient builds a client for the Cube deployment at conn.Domain
func NewClient(conn domain.CubeConnection, opts Options) (*Client, error) {
	if conn.Domain == "" {
		return nil, fmt.Errorf("cube domain is required")
	}
	if conn.Token == "" && conn.APISecret == "" {
		return nil, fmt.Errorf("cube token or api secret is required")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   60 * time.Second,
		}
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.PollInitialInterval <= 0 {
		opts.PollInitialInterval = 500 * time.Millisecond
	}
	if opts.PollMaxInterval <= 0 {
		opts.PollMaxInterval = 5 * time.Second
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 10 * time.Minute
	}

	base := strings.TrimRight(conn.Domain, "/")
	if !strings.HasSuffix(base, apiPath) {
		base += apiPath
	}

	return &Client{
		baseURL: base,
		token:   conn.Token,
		secret:  []byte(conn.APISecret),
		client:  opts.HTTPClient,
		opts:    opts,
		now:     time.Now,
	}, nil
}

// authorization returns the token to send. With an API secret a short-lived
// HS256 token is signed instead.
func (c *Client) authorization() (string, error) {
	if len(c.secret) == 0 {
		return c.token, nil
	}
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(c.opts.TokenTTL).Unix(),
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign cube token: %w", err)
	}
	return signed, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode cube request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	auth, err := c.authorization()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", auth)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("cube: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("cube: failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			return fmt.Errorf("cube: %s (status %d)", e.Error, resp.StatusCode)
		}
		return fmt.Errorf("cube: unexpected status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("cube: failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) meta(ctx context.Context) (*metaResponse, error) {
	var meta metaResponse
	if err := c.do(ctx, http.MethodGet, "/meta", nil, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// GetViews lists cubes and views
func (c *Client) GetViews(ctx context.Context) ([]domain.SemanticLayerView, error) {
	meta, err := c.meta(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]domain.SemanticLayerView, 0, len(meta.Cubes))
	for _, cube := range meta.Cubes {
		views = append(views, domain.SemanticLayerView{
			Name:        cube.Name,
			Label:       titleOr(cube.Title, cube.Name),
			Description: cube.Description,
			Visible:     visible(cube.IsVisible, cube.Public),
		})
	}
	return views, nil
}

// GetFields returns the dimensions and measures of a view. Every member of a
// view can be combined, so the selection does not narrow the result.
func (c *Client) GetFields(ctx context.Context, view string, _ domain.SemanticLayerSelectedFields) ([]domain.SemanticLayerField, error) {
	meta, err := c.meta(ctx)
	if err != nil {
		return nil, err
	}
	for _, cube := range meta.Cubes {
		if cube.Name != view {
			continue
		}
		fields := make([]domain.SemanticLayerField, 0, len(cube.Dimensions)+len(cube.Measures))
		for _, d := range cube.Dimensions {
			fields = append(fields, dimensionField(view, d))
		}
		for _, m := range cube.Measures {
			fields = append(fields, measureField(view, m))
		}
		return fields, nil
	}
	return nil, apperrors.NewAppError(apperrors.ErrCodeNotFound, fmt.Sprintf("view %q not found", view), nil)
}

// GetSQL returns the SQL Cube generates for the query
func (c *Client) GetSQL(ctx context.Context, q domain.SemanticLayerQuery) (string, error) {
	cq, err := toCubeQuery(q)
	if err != nil {
		return "", err
	}
	var resp sqlResponse
	if err := c.do(ctx, http.MethodPost, "/sql", queryRequest{Query: cq}, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("cube: %s", resp.Error)
	}
	if len(resp.SQL.SQL) == 0 {
		return "", fmt.Errorf("cube: empty sql response")
	}
	var sql string
	if err := json.Unmarshal(resp.SQL.SQL[0], &sql); err != nil {
		return "", fmt.Errorf("cube: unexpected sql response: %w", err)
	}
	return sql, nil
}

var errContinueWait = errors.New(continueWait)

// StreamResults loads the query, retrying while Cube answers "Continue wait",
// and hands the rows to fn in pages.
func (c *Client) StreamResults(ctx context.Context, q domain.SemanticLayerQuery, fn func([]domain.SemanticLayerResultRow) error) (int, error) {
	cq, err := toCubeQuery(q)
	if err != nil {
		return 0, err
	}
	log := logging.New("semantic:cube").WithContext(ctx)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.PollInitialInterval
	b.MaxInterval = c.opts.PollMaxInterval
	b.MaxElapsedTime = c.opts.PollTimeout

	var data []map[string]any
	op := func() error {
		var resp loadResponse
		if err := c.do(ctx, http.MethodPost, "/load", queryRequest{Query: cq}, &resp); err != nil {
			return backoff.Permanent(err)
		}
		if resp.Error == continueWait {
			log.Debugf("Cube is still computing the result")
			return errContinueWait
		}
		if resp.Error != "" {
			return backoff.Permanent(fmt.Errorf("cube: %s", resp.Error))
		}
		data = resp.Data
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		if errors.Is(err, errContinueWait) {
			return 0, fmt.Errorf("cube: query did not finish within %s", c.opts.PollTimeout)
		}
		return 0, err
	}

	rows := renameRows(data, q)
	for start := 0; start < len(rows); start += pageSize {
		end := min(start+pageSize, len(rows))
		if err := fn(rows[start:end]); err != nil {
			return start, err
		}
	}
	return len(rows), nil
}

// renameRows maps member.granularity keys back to field names and turns
// numeric measure strings into numbers.
func renameRows(data []map[string]any, q domain.SemanticLayerQuery) []domain.SemanticLayerResultRow {
	rename := make(map[string]string, len(q.TimeDimensions))
	for _, td := range q.TimeDimensions {
		if td.Granularity != "" {
			rename[td.Name+"."+strings.ToLower(string(td.Granularity))] = td.Name
		}
	}
	measures := make(map[string]bool, len(q.Metrics))
	for _, m := range q.Metrics {
		measures[m] = true
	}

	rows := make([]domain.SemanticLayerResultRow, 0, len(data))
	for _, record := range data {
		row := make(domain.SemanticLayerResultRow, len(record))
		for key, value := range record {
			name := key
			if field, ok := rename[key]; ok {
				name = field
			} else if _, ok := row[key]; ok {
				// the raw time dimension duplicates the truncated one
				continue
			}
			if s, ok := value.(string); ok && measures[name] {
				if f, err := strconv.ParseFloat(s, 64); err == nil {
					value = f
				}
			}
			row[name] = value
		}
		rows = append(rows, row)
	}
	return rows
}

func titleOr(title, name string) string {
	if title != "" {
		return title
	}
	return name
}

func visible(isVisible, public *bool) bool {
	if public != nil {
		return *public
	}
	if isVisible != nil {
		return *isVisible
	}
	return true
}

var cubeGranularities = []domain.TimeGranularity{
	domain.GranularitySecond, domain.GranularityMinute, domain.GranularityHour, domain.GranularityDay,
	domain.GranularityWeek, domain.GranularityMonth, domain.GranularityQuarter, domain.GranularityYear,
}

func fieldType(t string) domain.FieldType {
	switch t {
	case "time":
		return domain.FieldTypeTime
	case "number":
		return domain.FieldTypeNumber
	case "boolean":
		return domain.FieldTypeBoolean
	default:
		return domain.FieldTypeString
	}
}

func dimensionField(view string, m metaMember) domain.SemanticLayerField {
	f := domain.SemanticLayerField{
		Name:                   m.Name,
		Label:                  titleOr(m.ShortTitle, titleOr(m.Title, m.Name)),
		Description:            m.Description,
		Type:                   fieldType(m.Type),
		Kind:                   domain.FieldKindDimension,
		Visible:                visible(m.IsVisible, m.Public),
		View:                   view,
		AvailableGranularities: []domain.TimeGranularity{},
		AvailableOperators:     []domain.FilterOperator{domain.FilterIs, domain.FilterIsNot},
	}
	if f.Type == domain.FieldTypeTime {
		f.AvailableGranularities = cubeGranularities
	}
	return f
}

func measureField(view string, m metaMember) domain.SemanticLayerField {
	return domain.SemanticLayerField{
		Name:                   m.Name,
		Label:                  titleOr(m.ShortTitle, titleOr(m.Title, m.Name)),
		Description:            m.Description,
		Type:                   domain.FieldTypeNumber,
		Kind:                   domain.FieldKindMetric,
		Visible:                visible(m.IsVisible, m.Public),
		View:                   view,
		AggType:                m.AggType,
		AvailableGranularities: []domain.TimeGranularity{},
		AvailableOperators:     []domain.FilterOperator{domain.FilterIs, domain.FilterIsNot},
	}
}
