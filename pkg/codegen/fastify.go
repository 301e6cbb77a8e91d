package codegen

import (
	"strings"

	"tollgate-hq/tollgate/pkg/policy/ast"
)

// fastifyWrapper adapts the shared runtime to Fastify's plugin
// convention: an async plugin function registering an onRequest hook.
const fastifyWrapper = `
function subjectFromRequest(request) {
  return {
    agentId: headerValue(request.headers, 'x-agent-id'),
    walletAddress: headerValue(request.headers, 'x-wallet-address'),
    ipAddress: request.ip || '',
    amount: parseAmount(request.headers),
  };
}

async function tollgatePolicy(fastify, opts) {
  fastify.addHook('onRequest', async (request, reply) => {
    const decision = evaluate(subjectFromRequest(request), Date.now());
    if (decision.outcome === 'deny') {
      reply.code(403).send({
        error: 'policy_denied',
        reason: decision.reason,
        rule_index: decision.ruleIndex,
      });
    }
  });
}

module.exports = tollgatePolicy;
`

// generateFastify emits the complete Fastify plugin module.
func generateFastify(set *ast.PolicySet) string {
	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n")
	writePolicies(&sb, set)
	sb.WriteString(runtime)
	sb.WriteString(fastifyWrapper)
	return sb.String()
}
