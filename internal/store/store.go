// Package store persists guild profiles, strikes, and incidents in
// SQLite so configuration and penalty state survive restarts.
// Windows are deliberately memory-only.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"go-sentinel/internal/config"
	"go-sentinel/internal/event"
	"go-sentinel/internal/notifier"
	"go-sentinel/internal/strikes"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetConnMaxIdleTime(10 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("set synchronous mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS guild_profiles (
		guild_id TEXT PRIMARY KEY,
		log_channel_id TEXT DEFAULT '',
		whitelist_users TEXT DEFAULT '[]',
		whitelist_roles TEXT DEFAULT '[]',
		thresholds TEXT DEFAULT '{}',
		strikes_to_ban INTEGER DEFAULT 0,
		strike_expiry_seconds INTEGER DEFAULT 0,
		record_exempt INTEGER DEFAULT 1,
		updated_at INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS strikes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		guild_id TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		reason TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_strikes_guild_actor ON strikes(guild_id, actor_id);
	CREATE INDEX IF NOT EXISTS idx_strikes_created ON strikes(created_at);

	CREATE TABLE IF NOT EXISTS incidents (
		id TEXT PRIMARY KEY,
		guild_id TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		title TEXT NOT NULL,
		reason TEXT NOT NULL,
		outcome TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_incidents_guild ON incidents(guild_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// profileRow is the JSON shape stored for list/map columns.
type thresholdRow struct {
	Count         int   `json:"count"`
	WindowSeconds int64 `json:"window_seconds"`
}

// SaveProfile upserts one guild profile.
func (s *Store) SaveProfile(p *config.Profile) error {
	users := make([]string, 0, len(p.WhitelistUsers))
	for id := range p.WhitelistUsers {
		users = append(users, id)
	}
	roles := make([]string, 0, len(p.WhitelistRoles))
	for id := range p.WhitelistRoles {
		roles = append(roles, id)
	}
	ths := make(map[string]thresholdRow, len(p.Thresholds))
	for action, th := range p.Thresholds {
		ths[strconv.Itoa(int(action))] = thresholdRow{
			Count:         th.Count,
			WindowSeconds: int64(th.Window / time.Second),
		}
	}

	usersJSON, _ := json.Marshal(users)
	rolesJSON, _ := json.Marshal(roles)
	thsJSON, _ := json.Marshal(ths)

	recordExempt := 0
	if p.RecordExempt {
		recordExempt = 1
	}

	_, err := s.db.Exec(`
		INSERT INTO guild_profiles
			(guild_id, log_channel_id, whitelist_users, whitelist_roles, thresholds,
			 strikes_to_ban, strike_expiry_seconds, record_exempt, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			log_channel_id=excluded.log_channel_id,
			whitelist_users=excluded.whitelist_users,
			whitelist_roles=excluded.whitelist_roles,
			thresholds=excluded.thresholds,
			strikes_to_ban=excluded.strikes_to_ban,
			strike_expiry_seconds=excluded.strike_expiry_seconds,
			record_exempt=excluded.record_exempt,
			updated_at=excluded.updated_at`,
		p.GuildID, p.LogChannelID, string(usersJSON), string(rolesJSON), string(thsJSON),
		p.StrikesToBan, int64(p.StrikeExpiry/time.Second), recordExempt, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save profile %s: %w", p.GuildID, err)
	}
	return nil
}

// LoadProfiles reads every persisted guild profile.
func (s *Store) LoadProfiles() ([]*config.Profile, error) {
	rows, err := s.db.Query(`
		SELECT guild_id, log_channel_id, whitelist_users, whitelist_roles,
		       thresholds, strikes_to_ban, strike_expiry_seconds, record_exempt
		FROM guild_profiles`)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*config.Profile
	for rows.Next() {
		var (
			guildID, logChannel, usersJSON, rolesJSON, thsJSON string
			strikesToBan, expirySeconds, recordExempt          int64
		)
		if err := rows.Scan(&guildID, &logChannel, &usersJSON, &rolesJSON, &thsJSON,
			&strikesToBan, &expirySeconds, &recordExempt); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}

		p := config.NewProfile(guildID)
		p.LogChannelID = logChannel
		p.StrikesToBan = int(strikesToBan)
		p.StrikeExpiry = time.Duration(expirySeconds) * time.Second
		p.RecordExempt = recordExempt != 0

		var users, roles []string
		json.Unmarshal([]byte(usersJSON), &users)
		json.Unmarshal([]byte(rolesJSON), &roles)
		for _, id := range users {
			p.WhitelistUsers[id] = struct{}{}
		}
		for _, id := range roles {
			p.WhitelistRoles[id] = struct{}{}
		}

		ths := make(map[string]thresholdRow)
		json.Unmarshal([]byte(thsJSON), &ths)
		for key, row := range ths {
			code, err := strconv.Atoi(key)
			if err != nil {
				continue
			}
			p.Thresholds[event.ActionType(code)] = config.Threshold{
				Count:  row.Count,
				Window: time.Duration(row.WindowSeconds) * time.Second,
			}
		}

		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// SaveStrike implements strikes.Persister.
func (s *Store) SaveStrike(st strikes.Strike) error {
	_, err := s.db.Exec(
		`INSERT INTO strikes (guild_id, actor_id, reason, created_at) VALUES (?, ?, ?, ?)`,
		st.GuildID, st.ActorID, st.Reason, st.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("save strike: %w", err)
	}
	return nil
}

// LoadStrikes returns strikes created after cutoff; older rows are
// deleted in the same pass so the table stays bounded.
func (s *Store) LoadStrikes(cutoff time.Time) ([]strikes.Strike, error) {
	if _, err := s.db.Exec(`DELETE FROM strikes WHERE created_at < ?`, cutoff.Unix()); err != nil {
		return nil, fmt.Errorf("prune strikes: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT guild_id, actor_id, reason, created_at FROM strikes WHERE created_at >= ?`,
		cutoff.Unix())
	if err != nil {
		return nil, fmt.Errorf("load strikes: %w", err)
	}
	defer rows.Close()

	var out []strikes.Strike
	for rows.Next() {
		var st strikes.Strike
		var createdAt int64
		if err := rows.Scan(&st.GuildID, &st.ActorID, &st.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scan strike: %w", err)
		}
		st.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, st)
	}
	return out, rows.Err()
}

// RecordIncident implements notifier.Sink.
func (s *Store) RecordIncident(inc notifier.Incident) error {
	_, err := s.db.Exec(
		`INSERT INTO incidents (id, guild_id, actor_id, title, reason, outcome, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inc.ID, inc.GuildID, inc.ActorID, inc.Title, inc.Reason, inc.Outcome, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("record incident: %w", err)
	}
	return nil
}
