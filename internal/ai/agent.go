// Package ai answers natural-language questions about DEX activity by
// generating ClickHouse SQL over the transactions archive and summarising
// the rows with an LLM.
package ai

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	DefaultModel   = "openai/gpt-4.1-mini"
	openRouterBase = "https://openrouter.ai/api/v1"
	maxRows        = 200
	maxTokens      = 512
)

var (
	ErrEmptyQuestion = errors.New("question is required")
	ErrInvalidWallet = errors.New("wallet address may only contain letters, digits, '_' and '-'")
)

// walletPattern keeps wallet filters safe to embed in generated SQL.
var walletPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

type AgentConfig struct {
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	OpenRouterAPIKey string
	Model            string // OpenRouter model id

	Logger *logrus.Logger
}

// Question is a natural-language question, optionally limited to the
// transactions of one wallet.
type Question struct {
	Text   string
	Wallet string
}

func (q *Question) normalize() error {
	q.Text = strings.TrimSpace(q.Text)
	q.Wallet = strings.TrimSpace(q.Wallet)
	if q.Text == "" {
		return ErrEmptyQuestion
	}
	if q.Wallet != "" && !walletPattern.MatchString(q.Wallet) {
		return ErrInvalidWallet
	}
	return nil
}

type AskResult struct {
	SQL    string `json:"sql"`
	Answer string `json:"answer"`
	Rows   int    `json:"rows"`
	Wallet string `json:"wallet,omitempty"`
}

// Agent turns questions into read-only SQL over the transactions archive.
type Agent struct {
	llm      llms.Model
	db       *sql.DB
	database string
	logger   *logrus.Logger
}

// NewAgent connects to ClickHouse and the OpenRouter-backed LLM.
func NewAgent(ctx context.Context, cfg AgentConfig) (*Agent, error) {
	if cfg.OpenRouterAPIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY is required")
	}
	if cfg.ClickHouseAddr == "" {
		return nil, fmt.Errorf("CLICKHOUSE_ADDR is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	llm, err := openai.New(
		openai.WithToken(cfg.OpenRouterAPIKey),
		openai.WithBaseURL(openRouterBase),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenRouter LLM: %w", err)
	}

	db := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{cfg.ClickHouseAddr},
		Auth: clickhouse.Auth{
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		},
	})
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse from AI agent: %w", err)
	}

	cfg.Logger.WithFields(logrus.Fields{
		"database": cfg.ClickHouseDatabase,
		"model":    cfg.Model,
	}).Info("analytics agent ready")

	return newAgent(llm, db, cfg.ClickHouseDatabase, cfg.Logger), nil
}

func newAgent(llm llms.Model, db *sql.DB, database string, logger *logrus.Logger) *Agent {
	if database == "" {
		database = "default"
	}
	return &Agent{llm: llm, db: db, database: database, logger: logger}
}

func (a *Agent) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Schema describes the table the agent queries.
func (a *Agent) Schema() string {
	return schemaFor(a.database)
}

// Ask answers an unscoped question.
func (a *Agent) Ask(ctx context.Context, question string) (*AskResult, error) {
	return a.AskQuestion(ctx, Question{Text: question})
}

// AskQuestion generates SQL for q, runs it and summarises the rows. A
// wallet-scoped question only accepts SQL that filters on that wallet.
func (a *Agent) AskQuestion(ctx context.Context, q Question) (*AskResult, error) {
	if err := q.normalize(); err != nil {
		return nil, err
	}

	query, err := a.generateSQL(ctx, q)
	if err != nil {
		return nil, err
	}

	rows, err := a.runQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rows: %w", err)
	}

	answer, err := a.complete(ctx, summaryPrompt(q, query, string(payload)))
	if err != nil {
		return nil, fmt.Errorf("LLM summarisation failed: %w", err)
	}

	a.logger.WithFields(logrus.Fields{
		"wallet": q.Wallet,
		"rows":   len(rows),
	}).Debug("answered analytics question")

	return &AskResult{SQL: query, Answer: answer, Rows: len(rows), Wallet: q.Wallet}, nil
}

func (a *Agent) generateSQL(ctx context.Context, q Question) (string, error) {
	resp, err := a.complete(ctx, sqlPrompt(a.database, q))
	if err != nil {
		return "", fmt.Errorf("LLM SQL generation failed: %w", err)
	}

	query := sanitizeSQL(resp)
	if err := validateSQL(query, a.database); err != nil {
		return "", err
	}
	if q.Wallet != "" && !filtersWallet(query, q.Wallet) {
		return "", fmt.Errorf("generated query does not filter on wallet_address = '%s'", q.Wallet)
	}

	a.logger.WithField("sql", query).Debug("generated SQL")
	return query, nil
}

func (a *Agent) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := llms.GenerateFromSinglePrompt(ctx, a.llm, prompt, llms.WithMaxTokens(maxTokens))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp), nil
}

// runQuery executes query and returns at most maxRows rows keyed by column.
func (a *Agent) runQuery(ctx context.Context, query string) ([]map[string]any, error) {
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()
	return collectRows(rows, maxRows)
}

type rowScanner interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func collectRows(rows rowScanner, limit int) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	out := make([]map[string]any, 0)
	for len(out) < limit && rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

// sanitizeSQL strips code fences and trailing semicolons from LLM output.
func sanitizeSQL(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToLower(s), "sql") {
		s = s[3:]
	}
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ";")
	return strings.TrimSpace(s)
}

var disallowedKeywords = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true, "DROP": true, "ALTER": true,
	"TRUNCATE": true, "CREATE": true, "RENAME": true, "ATTACH": true, "DETACH": true,
	"OPTIMIZE": true, "SYSTEM": true, "GRANT": true,
}

// validateSQL only lets through a single read-only query over the
// transactions table.
func validateSQL(s, database string) error {
	if s == "" {
		return fmt.Errorf("empty SQL generated by LLM")
	}
	if strings.Contains(s, ";") {
		return fmt.Errorf("multiple statements or semicolons are not allowed")
	}

	upper := strings.Join(strings.Fields(strings.ToUpper(s)), " ")
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return fmt.Errorf("only SELECT queries are allowed, got: %s", upper[:min(20, len(upper))])
	}

	words := strings.FieldsFunc(upper, func(r rune) bool {
		return !(r == '_' || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	})
	for _, w := range words {
		if disallowedKeywords[w] {
			return fmt.Errorf("disallowed SQL keyword %q in generated query", w)
		}
	}

	qualified := "FROM " + strings.ToUpper(database) + ".TRANSACTIONS"
	if !strings.Contains(upper, "FROM TRANSACTIONS") && !strings.Contains(upper, qualified) {
		return fmt.Errorf("query must target the %s.transactions table", database)
	}
	return nil
}

// filtersWallet reports whether query compares wallet_address to wallet.
func filtersWallet(query, wallet string) bool {
	compact := strings.Join(strings.Fields(strings.ToUpper(query)), "")
	return strings.Contains(compact, "WALLET_ADDRESS='"+strings.ToUpper(wallet)+"'")
}
