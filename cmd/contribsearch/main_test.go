package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jask/contribsearch/internal/config"
	"github.com/jask/contribsearch/internal/logger"
	"github.com/jask/contribsearch/internal/service"
)

const itcont = `C00401224|N|M6|P|201706229068036155|15|IND|SMITH, JOHN|NEW YORK|NY|10022|SELF|LAWYER|05202017|1000||SA11AI_1|1173291|||1001
C00401224|N|M6|P|201706229068036156|15|IND|SMITH, JOHN A|NEW YORK|NY|10022|SELF|LAWYER|06012017|250||SA11AI_2|1173291|||1002
C00401224|N|M6|P|201706229068036157|15|IND|DOE, JANE|BOSTON|MA|02110|NONE|RETIRED|07012017|75.50||SA11AI_3|1173291|||1003
`

func testConfig(t *testing.T, driver string) config.Config {
	t.Helper()
	migrations, err := filepath.Abs("../../internal/database/migrations")
	require.NoError(t, err)
	return config.Config{
		Store: config.StoreConfig{Driver: driver},
		Database: config.DatabaseConfig{
			Path:           filepath.Join(t.TempDir(), "data", "contributions.db"),
			MigrationsPath: migrations,
			MaxConns:       2,
		},
		Search: config.SearchConfig{
			DefaultLimit: 10,
			MaxLimit:     100,
			Tiers:        []string{"person_key", "normalized", "raw", "initials", "fuzzy"},
			Fuzzy:        config.FuzzyConfig{SampleSize: 100, Threshold: 0.85, SamplePolicy: "block", PrefixLen: 2},
		},
		Log: config.LogConfig{Level: "info", Format: "text"},
	}
}

func writeItcont(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "itcont.txt")
	require.NoError(t, os.WriteFile(path, []byte(itcont), 0o600))
	return path
}

func TestBackendLoadAndSearch(t *testing.T) {
	for _, driver := range []string{config.DriverMemory, config.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(t, driver)
			b, err := openBackend(ctx, cfg, logger.Discard())
			require.NoError(t, err)
			defer b.Close()

			res, err := b.load(ctx, []string{writeItcont(t)})
			require.NoError(t, err)
			require.Equal(t, 3, res.Imported)

			n, err := b.count(ctx)
			require.NoError(t, err)
			require.Equal(t, 3, n)

			svc, err := b.searchService(cfg.Search)
			require.NoError(t, err)
			resp, err := svc.BulkSearch(ctx, service.BulkRequest{
				Names: []string{"John Smith", "Jane Doe"},
				City:  "New York",
				Limit: 10,
			})
			require.NoError(t, err)
			require.Len(t, resp.Summary, 2)
			assert.Equal(t, 2, resp.Summary[0].MatchesFound)
			assert.EqualValues(t, 125000, resp.Summary[0].TotalAmountCents)
			assert.Equal(t, 0, resp.Summary[1].MatchesFound)
		})
	}
}

func TestBackendRejectsUnknownTier(t *testing.T) {
	cfg := testConfig(t, config.DriverMemory)
	b, err := openBackend(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	defer b.Close()

	cfg.Search.Tiers = []string{"normalized", "soundex"}
	_, err = b.searchService(cfg.Search)
	require.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestBackendResetSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.DriverSQLite)
	b, err := openBackend(ctx, cfg, logger.Discard())
	require.NoError(t, err)
	defer b.Close()

	_, err = b.load(ctx, []string{writeItcont(t)})
	require.NoError(t, err)
	require.NoError(t, b.reset(ctx))

	n, err := b.count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestMigrateSQLite(t *testing.T) {
	cfg := testConfig(t, config.DriverSQLite)
	msg, err := migrate(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, "sqlite schema at version 2", msg)
	require.FileExists(t, cfg.Database.Path)

	_, err = migrate(context.Background(), testConfig(t, config.DriverMemory))
	require.Error(t, err)
}

func TestSplitNames(t *testing.T) {
	cases := map[string][]string{
		"paul paul, victor tate":    {"paul paul", "victor tate"},
		"Smith, John":               {"Smith, John"},
		"Smith, John A., Doe, Jane": {"Smith, John A.", "Doe, Jane"},
		"John Smith,,  ":            {"John Smith"},
		"Cher":                      {"Cher"},
	}
	for in, want := range cases {
		require.Equal(t, want, splitNames([]string{in}), in)
	}
	require.Equal(t, []string{"John Smith", "Jane Doe"}, splitNames([]string{"John Smith", "Jane Doe"}))
}

func TestRenderResults(t *testing.T) {
	resp := &service.BulkResponse{
		Summary: []service.SearchSummary{
			{SearchTerm: "John Smith", MatchesFound: 1, TotalAmountCents: 100000},
			{SearchTerm: "Nobody"},
			{SearchTerm: "Broken", Error: "storage unavailable"},
		},
		Results: []service.MatchResult{{SearchTerm: "John Smith", Tier: service.TierNormalized}},
	}
	resp.Results[0].NameRaw = "SMITH, JOHN"
	resp.Results[0].AmountCents = 100000

	var buf bytes.Buffer
	renderResults(&buf, resp)
	out := buf.String()
	assert.Contains(t, out, "SMITH, JOHN")
	assert.Contains(t, out, "1000.00")
	assert.Contains(t, out, "John Smith: 1 matches, $1000.00")
	assert.Contains(t, out, "no matches")
	assert.Contains(t, out, "storage unavailable")
}
