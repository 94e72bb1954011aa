// Package caixa fetches draw results from the public Caixa lottery API.
package caixa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rewired-gh/lottosmart/internal/models"
	"github.com/tidwall/gjson"
)

// DefaultBaseURL is the public results endpoint.
const DefaultBaseURL = "https://servicebus2.caixa.gov.br/portaldeloterias/api"

const maxBodyBytes = 1 << 20

var errNotFound = errors.New("status 404")

// Client provides access to the Caixa results API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates a new Caixa client. Every call is bounded by timeout and
// is not retried; a failure is reported to the caller as-is.
func NewClient(baseURL string, timeout time.Duration, userAgent string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchDraw retrieves one draw of game. A number <= 0 requests the latest draw.
// A 404 for a specific number wraps models.ErrDrawNotFound; every other
// failure wraps models.ErrUpstreamUnavailable.
func (c *Client) FetchDraw(ctx context.Context, game models.Game, number int) (*models.Draw, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, game.APIName)
	if number > 0 {
		url = fmt.Sprintf("%s/%d", url, number)
	}

	body, err := c.doRequest(ctx, url)
	if number > 0 && errors.Is(err, errNotFound) {
		return nil, fmt.Errorf("%w: %s draw %d", models.ErrDrawNotFound, game.ID, number)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s draw %d: %v", models.ErrUpstreamUnavailable, game.ID, number, err)
	}

	draw, err := Normalize(game, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s draw %d: %v", models.ErrUpstreamUnavailable, game.ID, number, err)
	}
	return draw, nil
}

func (c *Client) doRequest(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return body, nil
}

// Normalize turns an upstream payload into a canonical draw. The upstream has
// served two naming schemes over time (Caixa's camelCase and the snake_case
// mirror format); each field is read from whichever is present.
func Normalize(game models.Game, body []byte) (*models.Draw, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON payload")
	}
	root := gjson.ParseBytes(body)

	d := &models.Draw{
		Game:               game.ID,
		Number:             int(first(root, "numero", "concurso").Int()),
		Date:               first(root, "dataApuracao", "data").String(),
		Numbers:            intList(first(root, "listaDezenas", "dezenas")),
		Accumulated:        first(root, "acumulado").Bool(),
		AccumulatedAmount:  first(root, "valorAcumuladoProximoConcurso", "valor_acumulado").Float(),
		NextDrawNumber:     int(first(root, "numeroConcursoProximo", "proximo_concurso").Int()),
		NextDrawDate:       first(root, "dataProximoConcurso", "data_proximo_concurso").String(),
		EstimatedNextPrize: first(root, "valorEstimadoProximoConcurso", "valor_estimado_proximo").Float(),
		Prizes:             prizeRows(first(root, "listaRateioPremio", "premiacoes")),
		FetchedAt:          time.Now(),
	}
	if game.DualDraw {
		d.SecondNumbers = intList(first(root, "listaDezenasSegundoSorteio", "dezenas_segundo_sorteio"))
	}

	if err := d.Validate(game); err != nil {
		return nil, fmt.Errorf("malformed draw: %w", err)
	}
	return d, nil
}

// first returns the first of paths that exists in root.
func first(root gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if r := root.Get(p); r.Exists() && r.Type != gjson.Null {
			return r
		}
	}
	return gjson.Result{}
}

// intList reads ["05","12",...] or [5,12,...].
func intList(r gjson.Result) []int {
	if !r.IsArray() {
		return nil
	}
	var out []int
	r.ForEach(func(_, v gjson.Result) bool {
		out = append(out, int(v.Int()))
		return true
	})
	return out
}

func prizeRows(r gjson.Result) []models.PrizeRow {
	if !r.IsArray() {
		return nil
	}
	var rows []models.PrizeRow
	r.ForEach(func(_, v gjson.Result) bool {
		tier := int(v.Get("faixa").Int())
		if tier == 0 {
			tier = len(rows) + 1
		}
		rows = append(rows, models.PrizeRow{
			Tier:        tier,
			Description: first(v, "descricaoFaixa", "descricao").String(),
			Winners:     int(first(v, "numeroDeGanhadores", "ganhadores").Int()),
			Amount:      v.Get("valorPremio").Float(),
		})
		return true
	})
	return rows
}
