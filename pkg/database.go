package viewer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx" //make alias name the package to sqlx
	_ "modernc.org/sqlite"
)

// ProcessingConfig maps a channel path (ch<daqid>/raw) to the identifier of
// the processing chain used for it.
type ProcessingConfig map[string]string

// Metadata is the read-only metadata service.
type Metadata interface {
	ChannelMapAt(ctx context.Context, timestamp string) (ChannelMap, error)
	ProcessingConfigAt(ctx context.Context, timestamp string) (ProcessingConfig, error)
	ProcessingChain(ctx context.Context, configID string) (ChainDefinition, error)
}

func ConnectToDatabase(user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	port := "3306"
	dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
	db, err := sqlx.Connect("mysql", dbURI)
	return db, err
}

func OpenSQLiteDatabase(path string) (*sqlx.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return sqlx.Connect("sqlite", path)
}

// OpenDatabase connects to the metadata database selected in the configuration.
func OpenDatabase(config Configuration) (*sqlx.DB, error) {
	switch config.MetadataDriver {
	case "mysql":
		return ConnectToDatabase(config.User, config.Passwd, config.Host, config.DBName)
	case "sqlite", "":
		if config.MetadataPath == "" {
			return nil, fmt.Errorf("metadata_path is required for the sqlite driver")
		}
		return OpenSQLiteDatabase(config.MetadataPath)
	default:
		return nil, fmt.Errorf("unknown metadata driver %q", config.MetadataDriver)
	}
}

type configEntry struct {
	ChannelPath string `db:"ChannelPath"`
	ConfigID    string `db:"ConfigID"`
}

// DBMetadata resolves metadata from validity-keyed tables: the entries with
// the greatest ValidFrom not after the requested timestamp apply.
type DBMetadata struct {
	db *sqlx.DB
}

func NewDBMetadata(db *sqlx.DB) *DBMetadata {
	return &DBMetadata{db: db}
}

func (m *DBMetadata) ChannelMapAt(ctx context.Context, timestamp string) (ChannelMap, error) {
	query := `SELECT Name, DAQID, System, StringNo AS String, PositionNo AS Position, Usable, Processable
		FROM ChannelMap
		WHERE ValidFrom = (SELECT MAX(ValidFrom) FROM ChannelMap WHERE ValidFrom <= ?)
		ORDER BY Name`

	if configuration.Verbosity > 1 {
		message := fmt.Sprintf("Reading channel map valid at %s", timestamp)
		logger.Info(message, "database")
	}
	if configuration.Verbosity > 2 {
		message := fmt.Sprintf("Query: %s", query)
		logger.Info(message, "database")
	}

	rows, err := m.db.QueryxContext(ctx, m.db.Rebind(query), timestamp)
	if err != nil {
		return ChannelMap{}, &MetadataLookupError{What: "channel map", Key: timestamp, Err: err}
	}
	defer rows.Close()

	channels := make([]Channel, 0)
	for rows.Next() {
		result := Channel{}
		err := rows.StructScan(&result)
		if err != nil {
			errMessage := fmt.Errorf("error scanning DB row: %w", err)
			return ChannelMap{}, &MetadataLookupError{What: "channel map", Key: timestamp, Err: errMessage}
		}
		channels = append(channels, result)
	}
	if err := rows.Err(); err != nil {
		return ChannelMap{}, &MetadataLookupError{What: "channel map", Key: timestamp, Err: err}
	}
	if len(channels) == 0 {
		return ChannelMap{}, &MetadataLookupError{What: "channel map", Key: timestamp}
	}
	return NewChannelMap(channels), nil
}

func (m *DBMetadata) ProcessingConfigAt(ctx context.Context, timestamp string) (ProcessingConfig, error) {
	query := `SELECT ChannelPath, ConfigID
		FROM ProcessingConfig
		WHERE ValidFrom = (SELECT MAX(ValidFrom) FROM ProcessingConfig WHERE ValidFrom <= ?)`

	if configuration.Verbosity > 1 {
		message := fmt.Sprintf("Reading processing configuration valid at %s", timestamp)
		logger.Info(message, "database")
	}
	if configuration.Verbosity > 2 {
		message := fmt.Sprintf("Query: %s", query)
		logger.Info(message, "database")
	}

	entries := []configEntry{}
	err := m.db.SelectContext(ctx, &entries, m.db.Rebind(query), timestamp)
	if err != nil {
		return nil, &MetadataLookupError{What: "processing configuration", Key: timestamp, Err: err}
	}
	if len(entries) == 0 {
		return nil, &MetadataLookupError{What: "processing configuration", Key: timestamp}
	}
	config := make(ProcessingConfig, len(entries))
	for _, entry := range entries {
		config[entry.ChannelPath] = entry.ConfigID
	}
	return config, nil
}

func (m *DBMetadata) ProcessingChain(ctx context.Context, configID string) (ChainDefinition, error) {
	query := `SELECT ConfigID, BaselineSamples, PoleZeroTau, TrapRise, TrapFlat, SamplePeriodNs
		FROM ProcessingChains WHERE ConfigID = ?`

	if configuration.Verbosity > 2 {
		message := fmt.Sprintf("Query: %s", query)
		logger.Info(message, "database")
	}

	chains := []ChainDefinition{}
	err := m.db.SelectContext(ctx, &chains, m.db.Rebind(query), configID)
	if err != nil {
		return ChainDefinition{}, &MetadataLookupError{What: "processing chain", Key: configID, Err: err}
	}
	if len(chains) == 0 {
		return ChainDefinition{}, &MetadataLookupError{What: "processing chain", Key: configID}
	}
	return chains[0], nil
}

// MigrateMetadata creates the metadata tables if they do not exist yet.
func MigrateMetadata(ctx context.Context, db *sqlx.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ChannelMap (
			ValidFrom VARCHAR(32) NOT NULL,
			Name VARCHAR(64) NOT NULL,
			DAQID INTEGER NOT NULL,
			System VARCHAR(32) NOT NULL,
			StringNo INTEGER NOT NULL,
			PositionNo INTEGER NOT NULL,
			Usable BOOLEAN NOT NULL,
			Processable BOOLEAN NOT NULL,
			PRIMARY KEY (ValidFrom, Name)
		)`,
		`CREATE TABLE IF NOT EXISTS ProcessingConfig (
			ValidFrom VARCHAR(32) NOT NULL,
			ChannelPath VARCHAR(64) NOT NULL,
			ConfigID VARCHAR(128) NOT NULL,
			PRIMARY KEY (ValidFrom, ChannelPath)
		)`,
		`CREATE TABLE IF NOT EXISTS ProcessingChains (
			ConfigID VARCHAR(128) NOT NULL PRIMARY KEY,
			BaselineSamples INTEGER NOT NULL,
			PoleZeroTau DOUBLE PRECISION NOT NULL,
			TrapRise INTEGER NOT NULL,
			TrapFlat INTEGER NOT NULL,
			SamplePeriodNs DOUBLE PRECISION NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("error migrating metadata database: %w", err)
		}
	}
	return nil
}

func InsertChannelMap(ctx context.Context, db *sqlx.DB, validFrom string, channels []Channel) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := tx.Rebind(`INSERT INTO ChannelMap
		(ValidFrom, Name, DAQID, System, StringNo, PositionNo, Usable, Processable)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, ch := range channels {
		_, err := tx.ExecContext(ctx, query, validFrom, ch.Name, ch.DAQID, ch.System,
			ch.String, ch.Position, ch.Usable, ch.Processable)
		if err != nil {
			return fmt.Errorf("error inserting channel %s: %w", ch.Name, err)
		}
	}
	return tx.Commit()
}

func InsertProcessingConfig(ctx context.Context, db *sqlx.DB, validFrom string, config ProcessingConfig) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := tx.Rebind(`INSERT INTO ProcessingConfig (ValidFrom, ChannelPath, ConfigID) VALUES (?, ?, ?)`)
	for path, id := range config {
		if _, err := tx.ExecContext(ctx, query, validFrom, path, id); err != nil {
			return fmt.Errorf("error inserting processing config for %s: %w", path, err)
		}
	}
	return tx.Commit()
}

func InsertProcessingChain(ctx context.Context, db *sqlx.DB, chain ChainDefinition) error {
	_, err := db.NamedExecContext(ctx, `INSERT INTO ProcessingChains
		(ConfigID, BaselineSamples, PoleZeroTau, TrapRise, TrapFlat, SamplePeriodNs)
		VALUES (:ConfigID, :BaselineSamples, :PoleZeroTau, :TrapRise, :TrapFlat, :SamplePeriodNs)`, chain)
	if err != nil {
		return fmt.Errorf("error inserting processing chain %s: %w", chain.ID, err)
	}
	return nil
}
