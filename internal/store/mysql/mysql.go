// Package mysql implements store.Adapter over the relational schema from
// spec §6 (User, UserGroup, UserContact) using sqlx.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/go-sql-driver/mysql"

	"github.com/toeserve/presenced/internal/store"
	"github.com/toeserve/presenced/internal/types"
)

// Adapter is a sqlx-backed store.Adapter.
type Adapter struct {
	dsn string
	db  *sqlx.DB
}

// New returns an Adapter bound to dsn; call Open before use.
func New(dsn string) *Adapter {
	return &Adapter{dsn: dsn}
}

func (a *Adapter) Open(ctx context.Context) error {
	db, err := sqlx.Open("mysql", a.dsn)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}
	a.db = db
	return nil
}

func (a *Adapter) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// userRow mirrors the User table's physical layout; JSON columns are scanned
// raw and decoded separately since sqlx does not know the Go map shapes.
type userRow struct {
	ID           int64          `db:"id"`
	UUID         string         `db:"uuid"`
	Email        string         `db:"email"`
	Verified     bool           `db:"verified"`
	Name         string         `db:"name"`
	Message      string         `db:"message"`
	Settings     sql.NullString `db:"settings"`
	DateCreated  time.Time      `db:"date_created"`
	DateModified time.Time      `db:"date_modified"`
	DateLogin    sql.NullTime   `db:"date_login"`
	Relay        bool           `db:"relay"`
	FrontData    sql.NullString `db:"front_data"`
}

func (r userRow) toUser() (*types.User, error) {
	u := &types.User{
		ID:           types.Uid(r.ID),
		UUID:         r.UUID,
		Email:        r.Email,
		Verified:     r.Verified,
		Relay:        r.Relay,
		DateCreated:  r.DateCreated,
		DateModified: r.DateModified,
	}
	if r.DateLogin.Valid {
		u.DateLogin = r.DateLogin.Time
	}
	u.Status.Name = r.Name
	u.Status.SetStatusMessage(r.Message, true)

	if r.Settings.Valid && r.Settings.String != "" {
		if err := json.Unmarshal([]byte(r.Settings.String), &u.Settings); err != nil {
			return nil, err
		}
	}
	if r.FrontData.Valid && r.FrontData.String != "" {
		if err := json.Unmarshal([]byte(r.FrontData.String), &u.FrontData); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func (a *Adapter) UserGetByUUID(ctx context.Context, uuid string) (*types.User, error) {
	var row userRow
	err := a.db.GetContext(ctx, &row, `SELECT id, uuid, email, verified, name, message, settings,
		date_created, date_modified, date_login, relay, front_data FROM User WHERE uuid = ?`, uuid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toUser()
}

func (a *Adapter) UserGetByEmail(ctx context.Context, email string) (*types.User, error) {
	var row userRow
	err := a.db.GetContext(ctx, &row, `SELECT id, uuid, email, verified, name, message, settings,
		date_created, date_modified, date_login, relay, front_data FROM User WHERE email = ?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toUser()
}

func (a *Adapter) UserCreate(ctx context.Context, u *types.User) error {
	settings, err := json.Marshal(u.Settings)
	if err != nil {
		return err
	}
	frontData, err := json.Marshal(u.FrontData)
	if err != nil {
		return err
	}
	_, err = a.db.ExecContext(ctx, `INSERT INTO User
		(uuid, email, verified, name, message, settings, date_created, date_modified, date_login, relay, front_data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.UUID, u.Email, u.Verified, u.Status.Name, u.Status.PersistedMessage(), settings,
		u.DateCreated, u.DateModified, u.DateLogin, u.Relay, frontData)
	return err
}

func (a *Adapter) UserUpdateLogin(ctx context.Context, uuid string, at time.Time) error {
	_, err := a.db.ExecContext(ctx, `UPDATE User SET date_login = ? WHERE uuid = ?`, at, uuid)
	return err
}

func (a *Adapter) LoadGroups(ctx context.Context, userUUID string) ([]*types.Group, error) {
	rows, err := a.db.QueryxContext(ctx, `SELECT g.group_id, g.group_uuid, g.name, g.is_favorite, g.date_modified
		FROM UserGroup g JOIN User u ON u.id = g.user_id WHERE u.uuid = ?`, userUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.Group
	for rows.Next() {
		var g types.Group
		if err := rows.Scan(&g.ID, &g.UUID, &g.Name, &g.IsFavorite, &g.DateModified); err != nil {
			return nil, err
		}
		out = append(out, &g)
	}
	return out, rows.Err()
}

func (a *Adapter) LoadContacts(ctx context.Context, userUUID string) ([]store.ContactRow, error) {
	rows, err := a.db.QueryxContext(ctx, `SELECT c.contact_uuid, c.name, c.message, c.lists, c.groups
		FROM UserContact c JOIN User u ON u.id = c.user_id WHERE u.uuid = ?`, userUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.ContactRow
	for rows.Next() {
		var (
			cr         store.ContactRow
			groupsJSON sql.NullString
			lists      int
		)
		if err := rows.Scan(&cr.ContactUUID, &cr.Name, &cr.Message, &lists, &groupsJSON); err != nil {
			return nil, err
		}
		cr.Lists = types.Lst(lists)
		if groupsJSON.Valid && groupsJSON.String != "" {
			var entries []struct {
				ID   string `json:"id"`
				UUID string `json:"uuid"`
			}
			if err := json.Unmarshal([]byte(groupsJSON.String), &entries); err != nil {
				return nil, err
			}
			for _, e := range entries {
				cr.Groups = append(cr.Groups, types.GroupEntry{
					ContactUUID: cr.ContactUUID,
					GroupID:     e.ID,
					GroupUUID:   e.UUID,
				})
			}
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}

func (a *Adapter) SaveBatch(ctx context.Context, batch []store.UserSave) error {
	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, item := range batch {
		if err := saveOne(ctx, tx, item); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func saveOne(ctx context.Context, tx *sqlx.Tx, item store.UserSave) error {
	settings, err := json.Marshal(item.User.Settings)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE User SET name = ?, message = ?, settings = ?, date_modified = ? WHERE uuid = ?`,
		item.User.Status.Name, item.User.Status.PersistedMessage(), settings, time.Now().UTC(), item.User.UUID); err != nil {
		return err
	}

	if item.Detail == nil {
		return nil
	}

	var userID int64
	if err := tx.GetContext(ctx, &userID, `SELECT id FROM User WHERE uuid = ?`, item.User.UUID); err != nil {
		return err
	}

	keepGroups := map[string]bool{}
	for _, g := range item.Detail.Groups() {
		keepGroups[g.ID] = true
		if _, err := tx.ExecContext(ctx, `INSERT INTO UserGroup (user_id, group_id, group_uuid, name, is_favorite, date_modified)
			VALUES (?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE name = VALUES(name), is_favorite = VALUES(is_favorite), date_modified = VALUES(date_modified)`,
			userID, g.ID, g.UUID, g.Name, g.IsFavorite, g.DateModified); err != nil {
			return err
		}
	}
	if err := deleteMissing(ctx, tx, "UserGroup", "group_id", userID, keepGroups); err != nil {
		return err
	}

	keepContacts := map[string]bool{}
	for uuid, c := range item.Detail.Contacts {
		keepContacts[uuid] = true
		groupsJSON, err := json.Marshal(toGroupEntriesJSON(c.Groups))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO UserContact
			(user_id, contact_id, contact_uuid, name, message, lists, groups)
			VALUES (?, (SELECT id FROM User WHERE uuid = ?), ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE name = VALUES(name), message = VALUES(message), lists = VALUES(lists), groups = VALUES(groups)`,
			userID, uuid, uuid, c.Head.Status.Name, c.Head.Status.PersistedMessage(), int(c.Lists), groupsJSON); err != nil {
			return err
		}
	}
	return deleteMissing(ctx, tx, "UserContact", "contact_uuid", userID, keepContacts)
}

func toGroupEntriesJSON(entries []types.GroupEntry) []map[string]string {
	out := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]string{"id": e.GroupID, "uuid": e.GroupUUID})
	}
	return out
}

func deleteMissing(ctx context.Context, tx *sqlx.Tx, table, keyCol string, userID int64, keep map[string]bool) error {
	rows, err := tx.QueryxContext(ctx, `SELECT `+keyCol+` FROM `+table+` WHERE user_id = ?`, userID)
	if err != nil {
		return err
	}
	var stale []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			rows.Close()
			return err
		}
		if !keep[k] {
			stale = append(stale, k)
		}
	}
	rows.Close()
	for _, k := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE user_id = ? AND `+keyCol+` = ?`, userID, k); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) GetFrontData(ctx context.Context, uuid, service, key string) (string, bool, error) {
	var raw sql.NullString
	err := a.db.GetContext(ctx, &raw, `SELECT front_data FROM User WHERE uuid = ?`, uuid)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if !raw.Valid || raw.String == "" {
		return "", false, nil
	}
	var m map[string]map[string]string
	if err := json.Unmarshal([]byte(raw.String), &m); err != nil {
		return "", false, err
	}
	v, ok := m[service][key]
	return v, ok, nil
}

func (a *Adapter) SetFrontData(ctx context.Context, uuid, service, key, value string) error {
	u, err := a.UserGetByUUID(ctx, uuid)
	if err != nil {
		return err
	}
	if u == nil {
		return errors.New("mysql: unknown user")
	}
	u.SetFrontData(service, key, value)
	frontData, err := json.Marshal(u.FrontData)
	if err != nil {
		return err
	}
	_, err = a.db.ExecContext(ctx, `UPDATE User SET front_data = ? WHERE uuid = ?`, frontData, uuid)
	return err
}
