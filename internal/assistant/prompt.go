package assistant

import "strings"

// BuildPrompt wraps the user's message in the fixed instruction template the
// model is asked to answer with a single JSON object.
func BuildPrompt(userMessage string) string {
	var b strings.Builder

	b.WriteString("You are an AI assistant for a Filipino small business inventory and sales management system.\n")
	b.WriteString("You can understand Tagalog and English (Taglish).\n\n")

	b.WriteString("Your capabilities:\n")
	b.WriteString("1. ADD_MATERIAL - Add materials to inventory (parameters: name, unit, quantity, price_per_unit, date_purchased)\n")
	b.WriteString("2. VIEW_MATERIALS - Show all materials (parameters: search)\n")
	b.WriteString("3. RECORD_SALE - Record a sale (parameters: food_item_name or food_item_id, quantity, sale_price)\n")
	b.WriteString("4. VIEW_PROFIT - Show profit for a period (parameters: period = today, 2days, week, month or year)\n")
	b.WriteString("5. VIEW_STOCK - Show stock levels (parameters: threshold)\n")
	b.WriteString("6. VIEW_TOP_ITEMS - Show best-selling items (parameters: period, limit)\n\n")

	b.WriteString("Response format (JSON only, no additional text):\n")
	b.WriteString("{\n")
	b.WriteString("  \"action\": \"ACTION_NAME\",\n")
	b.WriteString("  \"parameters\": {...},\n")
	b.WriteString("  \"message\": \"Filipino/Taglish response to user\",\n")
	b.WriteString("  \"needsMoreInfo\": true/false\n")
	b.WriteString("}\n\n")

	b.WriteString("Examples:\n")
	b.WriteString("User: 'bumili ako ng 5 eggs'\n")
	b.WriteString(`Response: {"action":"ADD_MATERIAL","parameters":{"name":"Egg","quantity":5,"unit":"pieces"},"message":"Magkano po ang presyo per piece?","needsMoreInfo":true}` + "\n\n")
	b.WriteString("User: 'magkano kinita ko today?'\n")
	b.WriteString(`Response: {"action":"VIEW_PROFIT","parameters":{"period":"today"},"message":"Tingnan natin ang profit mo ngayong araw...","needsMoreInfo":false}` + "\n\n")
	b.WriteString("User: 'nagbenta ako ng 3 cheese pizza'\n")
	b.WriteString(`Response: {"action":"RECORD_SALE","parameters":{"food_item_name":"Cheese Pizza","quantity":3},"message":"Na-record ko na ang benta ng 3 Cheese Pizza.","needsMoreInfo":false}` + "\n\n")

	b.WriteString("User message: ")
	b.WriteString(strings.TrimSpace(userMessage))
	b.WriteString("\n")
	b.WriteString("Response (JSON only):")

	return b.String()
}
