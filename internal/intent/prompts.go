package intent

import (
	"fmt"
	"strings"

	"yieldhunter/internal/models"
)

const SystemPrompt = `You are SolSeeker, an expert AI assistant for Sol YieldHunter, a Solana yield aggregation platform. Your purpose is to help users find and invest in the best yield opportunities across Solana DeFi protocols.

Key responsibilities:
1. Answer questions about Solana DeFi, yield farming, and specific protocols (Raydium, Marinade, Orca, Solend, Tulip)
2. Help users find yield opportunities based on their risk tolerance and preferences
3. Process natural language requests to invest in or withdraw from opportunities
4. Provide information about fees, risks, and potential returns

When responding:
- Be concise and helpful
- Provide specific recommendations based on current opportunities
- Clearly explain risks and potential rewards
- If users want to invest, guide them through the process
- Always prioritize user interests and risk tolerance

You'll be provided with current yield opportunities data when users ask questions.`

const intentTemplate = `You are a financial transaction intent detector. Analyze the following message and extract the user's transaction intent.
If the user wants to invest in or withdraw from a yield opportunity, determine:
1. Whether they want to "invest" or "withdraw"
2. The amount they want to invest/withdraw
3. The protocol they want to use (if specified)
4. The specific opportunity ID they want to use (if specified)

If the message doesn't contain a transaction intent, return action: "none".

Here are the available opportunities:
%s

User message: %q

Respond with JSON in this format without any additional text:
{
  "action": "invest" | "withdraw" | "none",
  "amount": number | null,
  "protocol": "protocol name" | null,
  "opportunityId": number | null
}`

const fallbackReply = "I apologize, but I couldn't process your request."

// FormatOpportunities renders one line per opportunity for prompt context.
func FormatOpportunities(opps []models.YieldOpportunity) string {
	lines := make([]string, 0, len(opps))
	for i, o := range opps {
		lines = append(lines, fmt.Sprintf("%d. %s (ID:%d) on %s: APY %s%%, Risk:%s, TVL:%s",
			i+1, o.Name, o.ID, o.Protocol, o.APY.String(), o.RiskLevel, o.TVL.String()))
	}
	return strings.Join(lines, "\n")
}

// ContextualMessage is the user text as sent to the conversational call.
func ContextualMessage(message string, opps []models.YieldOpportunity) string {
	if len(opps) == 0 {
		return message
	}
	return message + "\n\nHere are the current yield opportunities:\n" + FormatOpportunities(opps)
}

func intentPrompt(message string, opps []models.YieldOpportunity) string {
	return fmt.Sprintf(intentTemplate, FormatOpportunities(opps), message)
}
