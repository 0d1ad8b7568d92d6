package domain

import "testing"

func TestIsSummaryRequest(t *testing.T) {
	cases := []struct {
		name     string
		messages []ChatMessage
		want     bool
	}{
		{
			name:     "plain summary",
			messages: []ChatMessage{{Role: RoleUser, Content: "Summarize the board"}},
			want:     true,
		},
		{
			name:     "summary noun form",
			messages: []ChatMessage{{Role: RoleUser, Content: "give me a quick summary please"}},
			want:     true,
		},
		{
			name:     "latest user message wins",
			messages: []ChatMessage{
				{Role: RoleUser, Content: "add a card for testing"},
				{Role: RoleAssistant, Content: "Done."},
				{Role: RoleUser, Content: "now summarize everything"},
			},
			want: true,
		},
		{
			name:     "mutation verb vetoes shortcut",
			messages: []ChatMessage{{Role: RoleUser, Content: "summarize the board and then delete the done column"}},
			want:     false,
		},
		{
			name:     "mutation follow-up is not a summary",
			messages: []ChatMessage{
				{Role: RoleUser, Content: "summarize the board"},
				{Role: RoleAssistant, Content: "Summary: ..."},
				{Role: RoleUser, Content: "move card-1 to done"},
			},
			want: false,
		},
		{
			name:     "no user message",
			messages: []ChatMessage{{Role: RoleAssistant, Content: "summary"}},
			want:     false,
		},
		{
			name:     "unrelated request",
			messages: []ChatMessage{{Role: RoleUser, Content: "what should I work on next?"}},
			want:     false,
		},
		{
			name:     "verb inside another word does not veto",
			messages: []ChatMessage{{Role: RoleUser, Content: "summarize the board additions"}},
			want:     true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsSummaryRequest(tc.messages); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	board := Board{
		Columns: []Column{
			{ID: "col-1", Title: "Todo", CardIDs: []string{"card-1", "card-2", "card-3", "card-4"}},
			{ID: "col-2", Title: "Done", CardIDs: []string{}},
		},
		Cards: map[string]Card{
			"card-1": {ID: "card-1", Title: "Alpha"},
			"card-2": {ID: "card-2", Title: "Beta"},
			"card-3": {ID: "card-3", Title: "Gamma"},
			"card-4": {ID: "card-4", Title: "Delta"},
		},
	}

	got := Summarize(board)
	want := "Summary: 2 columns, 4 cards.\n" +
		"Todo (4): Alpha; Beta; Gamma; ...\n" +
		"Done (0): No cards."
	if got != want {
		t.Fatalf("unexpected summary:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestSummarizeEmptyBoard(t *testing.T) {
	got := Summarize(Board{Cards: map[string]Card{}})
	if got != "Summary: 0 columns, 0 cards." {
		t.Fatalf("unexpected summary: %q", got)
	}
}
