package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/neristhub/campushub/internal/apperror"
	"github.com/neristhub/campushub/internal/model"
	"github.com/neristhub/campushub/internal/repository"
)

var _ repository.ListingRepository = (*DB)(nil)

const listingColumns = `id, kind, status, owner_id, owner_name, owner_registration,
	attachment, payload, created_at, updated_at`

// Create inserts a listing, generating its ID and timestamps in place.
func (db *DB) CreateListing(ctx context.Context, listing *model.Listing) error {
	listing.ID = xid.New().String()
	now := time.Now()
	listing.CreatedAt = now
	listing.UpdatedAt = now

	payload := listing.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO listings (id, kind, status, owner_id, owner_name, owner_registration,
		 attachment, payload, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		listing.ID,
		listing.Kind,
		listing.Status,
		listing.OwnerID,
		listing.OwnerName,
		listing.OwnerRegistration,
		listing.Attachment,
		string(payload),
		listing.CreatedAt,
		listing.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating listing: %w", err)
	}

	return nil
}

func (db *DB) GetListingByID(ctx context.Context, id string) (*model.Listing, error) {
	var listing model.Listing
	var payload string

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = ?`, id,
	).Scan(
		&listing.ID,
		&listing.Kind,
		&listing.Status,
		&listing.OwnerID,
		&listing.OwnerName,
		&listing.OwnerRegistration,
		&listing.Attachment,
		&payload,
		&listing.CreatedAt,
		&listing.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("listing", id)
		}
		return nil, fmt.Errorf("sqlite: getting listing %s: %w", id, err)
	}

	listing.Payload = []byte(payload)
	return &listing, nil
}

// ListListings returns matching listings newest-first.
//
// Payload filters are applied with json_extract. The filter keys are
// service-layer constants (category, subject, ...), never request input,
// so interpolating them into the JSON path is safe; the values are always
// bound parameters.
func (db *DB) ListListings(ctx context.Context, filter repository.ListingFilter) ([]model.Listing, error) {
	where := []string{"kind = ?"}
	args := []any{filter.Kind}

	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	for _, key := range sortedKeys(filter.Equals) {
		where = append(where, fmt.Sprintf("json_extract(payload, '$.%s') = ?", key))
		args = append(args, filter.Equals[key])
	}
	for _, key := range sortedKeys(filter.Matches) {
		where = append(where, fmt.Sprintf("json_extract(payload, '$.%s') LIKE ?", key))
		args = append(args, "%"+filter.Matches[key]+"%")
	}
	for _, key := range sortedIntKeys(filter.Ints) {
		where = append(where, fmt.Sprintf("json_extract(payload, '$.%s') = ?", key))
		args = append(args, filter.Ints[key])
	}

	query := `SELECT ` + listingColumns + ` FROM listings WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY created_at DESC, id DESC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing listings: %w", err)
	}
	defer rows.Close()

	listings := []model.Listing{}
	for rows.Next() {
		var l model.Listing
		var payload string
		if err := rows.Scan(
			&l.ID, &l.Kind, &l.Status, &l.OwnerID, &l.OwnerName, &l.OwnerRegistration,
			&l.Attachment, &payload, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning listing row: %w", err)
		}
		l.Payload = []byte(payload)
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating listings: %w", err)
	}

	return listings, nil
}

func (db *DB) UpdateListingStatus(ctx context.Context, id, status string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE listings SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating listing %s status: %w", id, err)
	}
	return checkAffected(result, "listing", id)
}

func (db *DB) DeleteListing(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting listing %s: %w", id, err)
	}
	return checkAffected(result, "listing", id)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedIntKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
