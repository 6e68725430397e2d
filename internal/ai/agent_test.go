package ai

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type scriptedLLM struct {
	replies []string
	prompts []string
	err     error
}

func (s *scriptedLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, m := range messages {
		for _, p := range m.Parts {
			if text, ok := p.(llms.TextContent); ok {
				s.prompts = append(s.prompts, text.Text)
			}
		}
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply}}}, nil
}

func (s *scriptedLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, s, prompt, options...)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestSanitizeSQL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "SELECT 1 FROM transactions", "SELECT 1 FROM transactions"},
		{"trailing semicolon", "SELECT 1 FROM transactions;  ", "SELECT 1 FROM transactions"},
		{"sql fence", "```sql\nSELECT count() FROM transactions\n```", "SELECT count() FROM transactions"},
		{"bare fence", "```\nSELECT count() FROM transactions;\n```\nsome prose", "SELECT count() FROM transactions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeSQL(tt.in))
		})
	}
}

func TestValidateSQL(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		wantErr bool
	}{
		{"simple select", "SELECT from_token, sum(amount) FROM transactions GROUP BY from_token", false},
		{"qualified table", "select count()\nfrom   dex.transactions where type = 'swap'", false},
		{"cte", "WITH s AS (SELECT * FROM transactions) SELECT count() FROM s", false},
		{"column named like keyword prefix", "SELECT count() AS updated_rows FROM transactions", false},
		{"empty", "", true},
		{"not a select", "SHOW TABLES", true},
		{"insert", "SELECT 1 FROM transactions WHERE 1 IN (INSERT INTO x VALUES (1))", true},
		{"drop", "SELECT 1 FROM transactions; DROP TABLE transactions", true},
		{"system table", "SELECT * FROM system.tables, transactions", true},
		{"wrong table", "SELECT * FROM balances", true},
		{"other database", "SELECT * FROM other.transactions", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSQL(tt.sql, "dex")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSchemaFor_NamesDatabase(t *testing.T) {
	s := schemaFor("analytics")
	assert.Contains(t, s, "Database: analytics")
	assert.Contains(t, s, "wallet_address")
	assert.Contains(t, s, "FINAL")
}

func TestGenerateSQL(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"```sql\nSELECT count() FROM dex.transactions FINAL WHERE type = 'swap';\n```"}}
	a := newAgent(llm, nil, "dex", quietLogger())

	got, err := a.generateSQL(context.Background(), Question{Text: "how many swaps?"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT count() FROM dex.transactions FINAL WHERE type = 'swap'", got)

	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "how many swaps?")
	assert.Contains(t, llm.prompts[0], "dex.transactions FINAL")
	assert.NotContains(t, llm.prompts[0], "wallet_address = '")
}

func TestGenerateSQL_WalletScope(t *testing.T) {
	const w = "0xabc123"

	t.Run("filter present", func(t *testing.T) {
		llm := &scriptedLLM{replies: []string{"SELECT from_token, sum(amount) FROM transactions FINAL\nWHERE wallet_address='0xABC123' GROUP BY from_token"}}
		a := newAgent(llm, nil, "dex", quietLogger())

		_, err := a.generateSQL(context.Background(), Question{Text: "what did I sell?", Wallet: w})
		require.NoError(t, err)
		require.Len(t, llm.prompts, 1)
		assert.Contains(t, llm.prompts[0], "wallet_address = '0xabc123'")
	})

	t.Run("filter missing", func(t *testing.T) {
		llm := &scriptedLLM{replies: []string{"SELECT count() FROM transactions FINAL"}}
		a := newAgent(llm, nil, "dex", quietLogger())

		_, err := a.generateSQL(context.Background(), Question{Text: "what did I sell?", Wallet: w})
		assert.Error(t, err)
	})

	t.Run("other wallet", func(t *testing.T) {
		llm := &scriptedLLM{replies: []string{"SELECT count() FROM transactions WHERE wallet_address = '0xdef'"}}
		a := newAgent(llm, nil, "dex", quietLogger())

		_, err := a.generateSQL(context.Background(), Question{Text: "what did I sell?", Wallet: w})
		assert.Error(t, err)
	})
}

func TestGenerateSQL_RejectsUnsafeQuery(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"DELETE FROM transactions"}}
	a := newAgent(llm, nil, "dex", quietLogger())

	_, err := a.generateSQL(context.Background(), Question{Text: "wipe it"})
	assert.Error(t, err)
}

func TestAskQuestion_Validation(t *testing.T) {
	llm := &scriptedLLM{}
	a := newAgent(llm, nil, "dex", quietLogger())
	ctx := context.Background()

	_, err := a.Ask(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	_, err = a.AskQuestion(ctx, Question{Text: "my swaps", Wallet: "x' OR 1=1 --"})
	assert.ErrorIs(t, err, ErrInvalidWallet)

	assert.Empty(t, llm.prompts)
}

func TestAsk_PropagatesLLMError(t *testing.T) {
	a := newAgent(&scriptedLLM{err: errors.New("rate limited")}, nil, "dex", quietLogger())

	_, err := a.Ask(context.Background(), "volume by token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

type fakeRows struct {
	cols []string
	data [][]any
	i    int
}

func (f *fakeRows) Columns() ([]string, error) { return f.cols, nil }
func (f *fakeRows) Next() bool                 { f.i++; return f.i <= len(f.data) }
func (f *fakeRows) Err() error                 { return nil }

func (f *fakeRows) Scan(dest ...any) error {
	for i, v := range f.data[f.i-1] {
		*(dest[i].(*any)) = v
	}
	return nil
}

func TestCollectRows(t *testing.T) {
	rows := &fakeRows{
		cols: []string{"from_token", "volume"},
		data: [][]any{{"ETH", 12.5}, {"USDC", 4000.0}, {"DAI", 10.0}},
	}

	got, err := collectRows(rows, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ETH", got[0]["from_token"])
	assert.Equal(t, 4000.0, got[1]["volume"])
}

func TestSummaryPrompt_MentionsWallet(t *testing.T) {
	p := summaryPrompt(Question{Text: "my volume?", Wallet: "0xabc"}, "SELECT 1 FROM transactions", "[]")
	assert.Contains(t, p, "wallet 0xabc")
	assert.Contains(t, p, "no matching activity")
}

func TestExampleQuestions(t *testing.T) {
	assert.NotEmpty(t, ExampleQuestions)
	assert.NotEmpty(t, WalletQuestions)
}

func TestNewAgent_RequiresKey(t *testing.T) {
	_, err := NewAgent(context.Background(), AgentConfig{ClickHouseAddr: "localhost:9000"})
	assert.Error(t, err)
}
