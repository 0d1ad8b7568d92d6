package ai

import (
	"github.com/bytedance/sonic"

	"kanban-api/domain"
)

// Pre-serialized reply examples embedded in the system prompt. The model is
// far more likely to emit the exact field names when it has seen them spelled
// out in valid JSON.
const (
	schemaExample = `{"schemaVersion":1,` +
		`"board":{"columns":[{"id":"col-1","title":"Todo","cardIds":["card-1"]}],` +
		`"cards":{"card-1":{"id":"card-1","title":"Title","details":"Details"}}},` +
		`"operations":[{"type":"update_card","cardId":"card-1","title":"Title","details":"Details"},` +
		`{"type":"move_card","cardId":"card-1","columnId":"col-1","position":0}],` +
		`"assistantMessage":"Updated card-1 details."}`

	summaryExample = `{"schemaVersion":1,` +
		`"board":{"columns":[{"id":"col-1","title":"Todo","cardIds":["card-1"]}],` +
		`"cards":{"card-1":{"id":"card-1","title":"Title","details":"Details"}}},` +
		`"operations":[],` +
		`"assistantMessage":"Summary: The board tracks planning, discovery, delivery, and QA work."}`
)

// BuildSystemPrompt renders the system prompt for an AI board request: the
// reply contract, one example per reply kind, and the current board as
// context.
func BuildSystemPrompt(board domain.Board) string {
	boardJSON, _ := sonic.MarshalString(board)

	return "You are a project management assistant. " +
		"Return a single JSON object only, no markdown or extra text. " +
		"Return exactly this schema with double-quoted keys: " +
		"{schemaVersion:1, board:{columns:[{id,title,cardIds}], cards:{[id]:{id,title,details}}}, operations:[...]} " +
		"Include a full board replacement and an operations list. " +
		"If no changes are needed, return the current board and an empty operations array. " +
		"If the user asks for a summary or non-board update, you MUST include assistantMessage with the reply," +
		" keep the board unchanged, and set operations to an empty array. " +
		"Use schemaVersion 1. " +
		"Use unique string ids; for new cards prefer 'card-' prefix. " +
		"Operation field names (use exactly these): " +
		"add_card(columnId, title, details), " +
		"update_card(cardId, title, details), " +
		"move_card(cardId, columnId, position), " +
		"delete_card(cardId), " +
		"add_column(title), " +
		"delete_column(columnId). " +
		"Ensure every cardId in columns exists in cards. " +
		"Schema example: " + schemaExample + " " +
		"Summary example: " + summaryExample + " " +
		"Board context: " + boardJSON
}
