package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cryptoScalper/internal/domain"
	"cryptoScalper/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements ports.TradeLedger and ports.TradeHistory using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/trading_bot.db" // Default path
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// A single connection serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	return repo, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL DEFAULT NULL,
		quantity REAL NOT NULL,
		leverage INTEGER NOT NULL,
		entry_time TIMESTAMP NOT NULL,
		exit_time TIMESTAMP DEFAULT NULL,
		profit_pct REAL DEFAULT NULL,
		status TEXT NOT NULL,
		take_profit_order_id INTEGER DEFAULT NULL,
		stop_loss_order_id INTEGER DEFAULT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trades_status_entry_time ON trades (status, entry_time);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

func persistenceErr(op string, err error) error {
	return fmt.Errorf("%s failed: %w: %w", op, ports.ErrPersistenceFailure, err)
}

// CreateTrade saves a new open trade and returns its assigned ID.
func (r *Repository) CreateTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	op := "CreateTrade"
	if err := trade.Validate(); err != nil {
		return 0, fmt.Errorf("%s failed: %w: %w", op, ports.ErrInvalidInput, err)
	}
	const query = `
	INSERT INTO trades (symbol, side, entry_price, quantity, leverage, entry_time, status,
	                    take_profit_order_id, stop_loss_order_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		trade.Symbol, trade.Side, trade.EntryPrice, trade.Quantity, trade.Leverage,
		trade.EntryTime.UTC(), trade.Status, nullOrderID(trade.TakeProfitOrderID), nullOrderID(trade.StopLossOrderID))
	if err != nil {
		return 0, persistenceErr(op, fmt.Errorf("insert trade for symbol %s: %w", trade.Symbol, err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, persistenceErr(op, fmt.Errorf("last insert ID for trade %s: %w", trade.Symbol, err))
	}
	trade.ID = id
	r.logger.Debug(ctx, "Trade created", map[string]interface{}{"tradeID": id, "symbol": trade.Symbol, "side": trade.Side})
	return id, nil
}

// CloseTrade records the exit of an open trade.
func (r *Repository) CloseTrade(ctx context.Context, id int64, exitPrice, profitPct float64, exitTime time.Time) error {
	op := "CloseTrade"
	const query = `
	UPDATE trades
	SET exit_price = ?, exit_time = ?, profit_pct = ?, status = ?
	WHERE id = ? AND status = ?`

	result, err := r.db.ExecContext(ctx, query,
		exitPrice, exitTime.UTC(), profitPct, domain.StatusClosed, id, domain.StatusOpen)
	if err != nil {
		return persistenceErr(op, fmt.Errorf("update trade ID %d: %w", id, err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return persistenceErr(op, fmt.Errorf("rows affected for trade ID %d: %w", id, err))
	}
	if rowsAffected == 0 {
		var status string
		err := r.db.QueryRowContext(ctx, `SELECT status FROM trades WHERE id = ?`, id).Scan(&status)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("%s failed: trade ID %d: %w", op, id, ports.ErrNotFound)
		case err != nil:
			return persistenceErr(op, fmt.Errorf("lookup trade ID %d: %w", id, err))
		default:
			return fmt.Errorf("%s failed: trade ID %d: %w", op, id, ports.ErrTradeClosed)
		}
	}
	r.logger.Debug(ctx, "Trade closed", map[string]interface{}{"tradeID": id, "exitPrice": exitPrice, "profitPct": profitPct})
	return nil
}

const selectTrade = `
	SELECT id, symbol, side, entry_price, exit_price, quantity, leverage,
	       entry_time, exit_time, profit_pct, status,
	       COALESCE(take_profit_order_id, 0), COALESCE(stop_loss_order_id, 0)
	FROM trades`

// ListOpenTrades retrieves all open trades ordered by entry time.
func (r *Repository) ListOpenTrades(ctx context.Context) ([]*domain.Trade, error) {
	return r.queryTrades(ctx, "ListOpenTrades", selectTrade+` WHERE status = ? ORDER BY entry_time ASC, id ASC`, domain.StatusOpen)
}

// ListClosedTrades retrieves the most recent closed trades, newest first.
func (r *Repository) ListClosedTrades(ctx context.Context, limit int) ([]*domain.Trade, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	return r.queryTrades(ctx, "ListClosedTrades", selectTrade+` WHERE status = ? ORDER BY exit_time DESC, id DESC LIMIT ?`, domain.StatusClosed, limit)
}

// UpdateBracketOrders stores the exchange ids of the protective orders.
func (r *Repository) UpdateBracketOrders(ctx context.Context, id int64, takeProfitOrderID, stopLossOrderID int64) error {
	op := "UpdateBracketOrders"
	const query = `UPDATE trades SET take_profit_order_id = ?, stop_loss_order_id = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, nullOrderID(takeProfitOrderID), nullOrderID(stopLossOrderID), id)
	if err != nil {
		return persistenceErr(op, fmt.Errorf("update trade ID %d: %w", id, err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return persistenceErr(op, fmt.Errorf("rows affected for trade ID %d: %w", id, err))
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s failed: trade ID %d: %w", op, id, ports.ErrNotFound)
	}
	return nil
}

// CountOpenedSince counts trades entered at or after since.
func (r *Repository) CountOpenedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades WHERE entry_time >= ?`, since.UTC()).Scan(&count)
	if err != nil {
		return 0, persistenceErr("CountOpenedSince", err)
	}
	return count, nil
}

func (r *Repository) queryTrades(ctx context.Context, op, query string, args ...interface{}) ([]*domain.Trade, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistenceErr(op, err)
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, persistenceErr(op, fmt.Errorf("scan trade: %w", err))
		}
		trades = append(trades, trade)
	}
	if err = rows.Err(); err != nil {
		return nil, persistenceErr(op, fmt.Errorf("iterate trade rows: %w", err))
	}
	return trades, nil
}

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanTrade scans a row into a domain.Trade struct.
func scanTrade(s scanner) (*domain.Trade, error) {
	t := &domain.Trade{}
	var (
		side, status string
		exitPrice    sql.NullFloat64
		exitTime     sql.NullTime
		profitPct    sql.NullFloat64
	)
	err := s.Scan(
		&t.ID, &t.Symbol, &side, &t.EntryPrice, &exitPrice, &t.Quantity, &t.Leverage,
		&t.EntryTime, &exitTime, &profitPct, &status,
		&t.TakeProfitOrderID, &t.StopLossOrderID)
	if err != nil {
		return nil, err
	}
	t.Side = domain.Side(side)
	t.Status = domain.TradeStatus(status)
	if exitPrice.Valid {
		t.ExitPrice = &exitPrice.Float64
	}
	if exitTime.Valid {
		t.ExitTime = &exitTime.Time
	}
	if profitPct.Valid {
		t.ProfitPct = &profitPct.Float64
	}
	return t, nil
}

func nullOrderID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
