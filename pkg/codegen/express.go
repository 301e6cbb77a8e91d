package codegen

import (
	"strings"

	"tollgate-hq/tollgate/pkg/policy/ast"
)

// expressWrapper adapts the shared runtime to Express's single
// middleware-function convention.
const expressWrapper = `
function subjectFromRequest(req) {
  return {
    agentId: headerValue(req.headers, 'x-agent-id'),
    walletAddress: headerValue(req.headers, 'x-wallet-address'),
    ipAddress: req.ip || (req.socket && req.socket.remoteAddress) || '',
    amount: parseAmount(req.headers),
  };
}

module.exports = function tollgatePolicy(req, res, next) {
  const decision = evaluate(subjectFromRequest(req), Date.now());
  if (decision.outcome === 'deny') {
    res.status(403).json({
      error: 'policy_denied',
      reason: decision.reason,
      rule_index: decision.ruleIndex,
    });
    return;
  }
  next();
};
`

// generateExpress emits the complete Express middleware module.
func generateExpress(set *ast.PolicySet) string {
	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n")
	writePolicies(&sb, set)
	sb.WriteString(runtime)
	sb.WriteString(expressWrapper)
	return sb.String()
}
