package tools

import "context"

// DexSwapTool is a privileged-tool stub: it proves the approval gate (a
// chain-transaction swap always requires operator sign-off before it can
// run) without implementing the ABI/RLP transaction codec a real swap
// would need, which is out of scope here.
type DexSwapTool struct{}

func NewDexSwapTool() *DexSwapTool { return &DexSwapTool{} }

func (t *DexSwapTool) Name() string { return "dex_swap" }

func (t *DexSwapTool) Description() string {
	return "Swap one token for another on the connected DEX. Requires operator approval before executing."
}

func (t *DexSwapTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"fromToken": map[string]interface{}{"type": "string"},
			"toToken":   map[string]interface{}{"type": "string"},
			"amount":    map[string]interface{}{"type": "string", "description": "Amount of fromToken to swap."},
		},
		"required": []string{"fromToken", "toToken", "amount"},
	}
}

func (t *DexSwapTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	from, _ := args["fromToken"].(string)
	to, _ := args["toToken"].(string)
	amount, _ := args["amount"].(string)
	return &Result{
		ForLLM: "Swap approved by operator but not executed: this deployment has no chain-transaction " +
			"signer wired in (swap codec is out of scope). Requested: " + amount + " " + from + " -> " + to + ".",
	}
}

// DexPoolsTool is a read-only stub reporting that no liquidity pool feed
// is wired in. It is not privileged: it can't move funds, only report.
type DexPoolsTool struct{}

func NewDexPoolsTool() *DexPoolsTool { return &DexPoolsTool{} }

func (t *DexPoolsTool) Name() string { return "dex_pools" }

func (t *DexPoolsTool) Description() string {
	return "List liquidity pools available on the connected DEX."
}

func (t *DexPoolsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

func (t *DexPoolsTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	return &Result{ForLLM: "No liquidity pool feed is wired in for this deployment."}
}
