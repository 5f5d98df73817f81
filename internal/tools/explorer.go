package tools

import (
	"fmt"
	"strings"

	"wallet-core-sol/internal/consts"
	"wallet-core-sol/internal/types"
)

// ExplorerURL 返回交易在区块浏览器中的地址，形如 {base}/tx/{sig}?cluster={mode}
func ExplorerURL(base string, sig types.Signature, mode consts.NetworkMode) string {
	if base == "" {
		base = consts.DefaultExplorerBaseURL
	}
	base = strings.TrimRight(base, "/")
	if mode == "" {
		mode = consts.NetworkDevnet
	}
	return fmt.Sprintf("%s/tx/%s?cluster=%s", base, sig, mode)
}
