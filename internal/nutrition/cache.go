package nutrition

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Cache keeps lookups in the nutrition_cache table for a fixed TTL.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func NewCache(db *sql.DB, ttl time.Duration) *Cache {
	return &Cache{db: db, ttl: ttl, now: time.Now}
}

// Get returns a cached, unexpired item. Its Source is SourceCache.
func (c *Cache) Get(ctx context.Context, name string) (Item, bool, error) {
	key := NormalizeName(name)
	var it Item
	err := c.db.QueryRowContext(ctx, `
SELECT display_name, energy_kcal, carbohydrate_g, protein_g, fat_g, sugars_g, amount
FROM nutrition_cache
WHERE food_name = ? AND expires_at > ?
`, key, c.now().UTC().Format(time.RFC3339)).Scan(
		&it.Name, &it.EnergyKcal, &it.CarbohydrateG, &it.ProteinG, &it.FatG, &it.SugarsG, &it.Amount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, fmt.Errorf("read nutrition cache %q: %w", key, err)
	}
	it.Source = SourceCache
	return it, true, nil
}

func (c *Cache) Put(ctx context.Context, it Item) error {
	key := NormalizeName(it.Name)
	if key == "" {
		return fmt.Errorf("nutrition cache key is empty")
	}
	now := c.now().UTC()
	_, err := c.db.ExecContext(ctx, `
INSERT INTO nutrition_cache(food_name, display_name, energy_kcal, carbohydrate_g, protein_g, fat_g, sugars_g, amount, source, fetched_at, expires_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(food_name) DO UPDATE SET
  display_name=excluded.display_name,
  energy_kcal=excluded.energy_kcal,
  carbohydrate_g=excluded.carbohydrate_g,
  protein_g=excluded.protein_g,
  fat_g=excluded.fat_g,
  sugars_g=excluded.sugars_g,
  amount=excluded.amount,
  source=excluded.source,
  fetched_at=excluded.fetched_at,
  expires_at=excluded.expires_at
`, key, it.Name, it.EnergyKcal, it.CarbohydrateG, it.ProteinG, it.FatG, it.SugarsG, it.Amount, string(it.Source),
		now.Format(time.RFC3339), now.Add(c.ttl).Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert nutrition cache %q: %w", key, err)
	}
	return nil
}

// Purge deletes expired rows, or every row when all is set.
func (c *Cache) Purge(ctx context.Context, all bool) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if all {
		res, err = c.db.ExecContext(ctx, `DELETE FROM nutrition_cache`)
	} else {
		res, err = c.db.ExecContext(ctx, `DELETE FROM nutrition_cache WHERE expires_at <= ?`, c.now().UTC().Format(time.RFC3339))
	}
	if err != nil {
		return 0, fmt.Errorf("purge nutrition cache: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Count returns the number of rows, expired ones included.
func (c *Cache) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nutrition_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count nutrition cache: %w", err)
	}
	return n, nil
}
