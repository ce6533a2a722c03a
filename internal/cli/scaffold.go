package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/loam"
	loamAdapter "github.com/aretw0/storeflow/pkg/adapters/loam"
	"github.com/aretw0/storeflow/pkg/domain"
)

type seedDoc struct {
	id      string
	content string
	meta    loamAdapter.NodeMetadata
}

// starterFlow is a small lead-capture flow: a menu, a phone prompt, an
// action node that tags the user and pings the admins, and a thank-you.
var starterFlow = []seedDoc{
	{
		id:      "main",
		content: "Welcome to our shop! What would you like to do?",
		meta: loamAdapter.NodeMetadata{
			Code: "MAIN",
			Type: string(domain.TypeMessage),
			Buttons: []domain.Button{
				{Label: "Catalog", Kind: domain.TargetURL, Target: "https://shop.example/catalog"},
				{Label: "Call me back", Kind: domain.TargetNode, Target: "ASK_PHONE", Row: 1},
			},
		},
	},
	{
		id:      "ask_phone",
		content: "Send your phone number and we will call you.",
		meta: loamAdapter.NodeMetadata{
			Code: "ASK_PHONE",
			Type: string(domain.TypeInput),
			Input: &loamAdapter.InputMetadata{
				Kind:          string(domain.ValuePhoneText),
				StorageKey:    "phone",
				Required:      true,
				ErrorText:     "That does not look like a phone number.",
				SuccessTarget: "SAVE_LEAD",
				CancelTarget:  "MAIN",
			},
		},
	},
	{
		id: "save_lead",
		meta: loamAdapter.NodeMetadata{
			Code: "SAVE_LEAD",
			Type: string(domain.TypeAction),
			Actions: []loamAdapter.ActionMetadata{
				{Kind: string(domain.ActionAddTag), Payload: map[string]any{domain.PayloadTag: "lead"}},
				{Kind: string(domain.ActionSendAdminMessage), Payload: map[string]any{domain.PayloadText: "Call back {{phone}}"}},
			},
			Next: "THANKS",
		},
	},
	{
		id:      "thanks",
		content: "Thanks! We will call {{phone}} shortly.",
		meta: loamAdapter.NodeMetadata{
			Code:    "THANKS",
			Type:    string(domain.TypeMessage),
			Buttons: []domain.Button{{Label: "Back to menu", Kind: domain.TargetHome}},
		},
	},
}

// Scaffold writes the starter flow as Markdown documents into dir.
func Scaffold(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// No versioning: this is plain file generation.
	repo, err := loam.Init(dir, loam.WithVersioning(false), loam.WithForceTemp(false))
	if err != nil {
		return fmt.Errorf("failed to initialize loam: %w", err)
	}
	typedRepo := loam.NewTypedRepository[loamAdapter.NodeMetadata](repo)

	for _, d := range starterFlow {
		err := typedRepo.Save(ctx, &loam.DocumentModel[loamAdapter.NodeMetadata]{
			ID:      d.id,
			Content: d.content,
			Data:    d.meta,
		})
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", d.id, err)
		}
	}
	return nil
}
