package postgres

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pkosilov/skinsbot/internal/domain"
)

// minCorridorAvg filters out items whose reference price is too small to
// ever clear the profit band after fees.
const minCorridorAvg = 0.1

// identifierRe validates table selectors. Table names cannot be bound as
// query parameters, so anything else is rejected before interpolation.
var identifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PriceStore implements domain.PriceStore using PostgreSQL. Reference prices
// live in per-snapshot tables written by the external sales-data pipeline;
// item names are stored URL-encoded and decoded on read.
type PriceStore struct {
	pool *pgxpool.Pool
}

// NewPriceStore creates a PriceStore backed by the given connection pool.
func NewPriceStore(pool *pgxpool.Pool) *PriceStore {
	return &PriceStore{pool: pool}
}

// Load reads every row of the selected snapshot table that passed the
// quality criteria and exceeds the minimum price floor, returning a mapping
// from decoded item name to corridor average.
func (s *PriceStore) Load(ctx context.Context, selector string) (map[string]float64, error) {
	if !identifierRe.MatchString(selector) {
		return nil, fmt.Errorf("postgres: load prices: invalid table selector %q", selector)
	}

	query := fmt.Sprintf(`
		SELECT item_name, corridor_avg
		FROM %s
		WHERE passed_criteria
		  AND corridor_avg > $1`, selector)

	rows, err := s.pool.Query(ctx, query, minCorridorAvg)
	if err != nil {
		return nil, fmt.Errorf("postgres: load prices from %s: %w", selector, err)
	}
	defer rows.Close()

	prices := make(map[string]float64, 1024)
	for rows.Next() {
		var (
			encodedName string
			corridorAvg float64
		)
		if err := rows.Scan(&encodedName, &corridorAvg); err != nil {
			return nil, fmt.Errorf("postgres: scan price row: %w", err)
		}

		name, err := url.QueryUnescape(encodedName)
		if err != nil {
			// Names that fail to decode are kept verbatim rather than
			// dropped; the join against listings will simply miss them.
			name = encodedName
		}
		prices[name] = corridorAvg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate price rows: %w", err)
	}

	return prices, nil
}

// Compile-time interface check.
var _ domain.PriceStore = (*PriceStore)(nil)
