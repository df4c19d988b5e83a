package agents

import (
	"context"
	"fmt"

	"github.com/mykola/agora/internal/llm"
	"github.com/mykola/agora/internal/types"
)

// ArtifactStore persists generated image bytes and returns a reference the
// submission can carry.
type ArtifactStore interface {
	Put(ctx context.Context, data []byte) (string, error)
}

// Artist fulfills IMAGE contracts with a one-shot image-generation call. The
// image bytes are persisted externally; the submission records only the
// artifact reference.
type Artist struct {
	client    llm.Client
	artifacts ArtifactStore
	submitter Submitter
}

// NewArtist creates an Artist freelancer.
func NewArtist(client llm.Client, artifacts ArtifactStore, submitter Submitter) *Artist {
	return &Artist{client: client, artifacts: artifacts, submitter: submitter}
}

// Type returns the contract type the Artist handles.
func (a *Artist) Type() types.ContractType {
	return types.ContractTypeImage
}

// Execute generates an image for the contract description, stores it, and
// submits the artifact reference.
func (a *Artist) Execute(ctx context.Context, contract types.Contract) error {
	if err := checkOpen(contract); err != nil {
		return err
	}

	imageBytes, err := a.client.GenerateImage(ctx, contract.Description)
	if err != nil {
		return fmt.Errorf("artist failed to generate image for contract %s: %w", contract.ContractID, err)
	}

	reference, err := a.artifacts.Put(ctx, imageBytes)
	if err != nil {
		return fmt.Errorf("artist failed to store artifact for contract %s: %w", contract.ContractID, err)
	}

	if _, err := a.submitter.PostSubmission(ctx, contract.ContractID, newAgentID("artist"), reference); err != nil {
		return fmt.Errorf("artist failed to submit for contract %s: %w", contract.ContractID, err)
	}
	return nil
}
