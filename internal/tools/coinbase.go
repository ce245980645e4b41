package tools

import "context"

// CoinbaseBalanceTool is a read-only stub reporting that no Coinbase
// account is wired in. Real account linkage needs an OAuth exchange this
// deployment doesn't implement.
type CoinbaseBalanceTool struct{}

func NewCoinbaseBalanceTool() *CoinbaseBalanceTool { return &CoinbaseBalanceTool{} }

func (t *CoinbaseBalanceTool) Name() string { return "coinbase_balance" }

func (t *CoinbaseBalanceTool) Description() string {
	return "Check balances on the connected Coinbase account."
}

func (t *CoinbaseBalanceTool) Parameters() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

func (t *CoinbaseBalanceTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	return &Result{ForLLM: "No Coinbase account is connected for this deployment."}
}

// CoinbaseTradeTool is a privileged-tool stub proving the approval gate
// covers exchange trades the same way it covers chain swaps (dex_swap).
type CoinbaseTradeTool struct{}

func NewCoinbaseTradeTool() *CoinbaseTradeTool { return &CoinbaseTradeTool{} }

func (t *CoinbaseTradeTool) Name() string { return "coinbase_trade" }

func (t *CoinbaseTradeTool) Description() string {
	return "Place a trade through the connected Coinbase account. Requires operator approval before executing."
}

func (t *CoinbaseTradeTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"product": map[string]interface{}{"type": "string", "description": "Trading pair, e.g. BTC-USD."},
			"side":    map[string]interface{}{"type": "string", "enum": []string{"buy", "sell"}},
			"amount":  map[string]interface{}{"type": "string"},
		},
		"required": []string{"product", "side", "amount"},
	}
}

func (t *CoinbaseTradeTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	return &Result{ForLLM: "Trade approved by operator but not executed: no Coinbase account is connected for this deployment."}
}
