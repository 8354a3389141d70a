package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/listingz-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.NotEmpty(t, matches, "no %s migration found", suffix)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestInventoryMigrationGuardsBalances(t *testing.T) {
	content := readMigration(t, "create_inventory_entries")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS inventory_entries",
		"CHECK (quantity >= 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_inventory_user_item ON inventory_entries (user_id, item_type)",
		"DROP TABLE IF EXISTS inventory_entries",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestListingsMigrationContainsReportUniqueness(t *testing.T) {
	content := readMigration(t, "create_listings")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS listings",
		"report_count integer NOT NULL DEFAULT 0 CHECK (report_count >= 0)",
		"CREATE TABLE IF NOT EXISTS listing_audit_entries",
		"CREATE TABLE IF NOT EXISTS listing_price_history",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_listing_reports_reporter ON listing_reports (listing_id, reporter_id)",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCatalogMigrationEnforcesPackageShape(t *testing.T) {
	content := readMigration(t, "create_catalog")
	require.Contains(t, content, "CONSTRAINT chk_listing_packages_tier CHECK")
	require.Contains(t, content, "CREATE UNIQUE INDEX IF NOT EXISTS ux_listing_packages_code")
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Listing Views!")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_add_listing_views.sql"), path)
	require.NoError(t, migrate.ValidateDir(dir))
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_init.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, migrate.ValidateDir(dir))
}

func TestValidateDirRejectsEmptyDir(t *testing.T) {
	require.Error(t, migrate.ValidateDir(t.TempDir()))
}
