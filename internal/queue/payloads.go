package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// ResearchPayload is the structured result of the research stage.
type ResearchPayload struct {
	Title             string   `json:"title"`
	Summary           string   `json:"summary"`
	Facts             []string `json:"facts"`
	ImageKeywords     []string `json:"image_keywords"`
	VerificationScore float64  `json:"verification_score,omitempty"`
	BirthYear         int      `json:"birth_year,omitempty"`
	DeathYear         int      `json:"death_year,omitempty"`
}

// Asset is one sourced image with its license or source identifier.
type Asset struct {
	URL       string `json:"url"`
	SourceID  string `json:"source_id"`
	LocalPath string `json:"local_path,omitempty"`
}

// PublishMetadata is the distribution metadata attached to a finished
// artifact. It doubles as the experiment baseline: title, tags, and
// schedule are the dimensions the experiment engine perturbs.
type PublishMetadata struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

// Research decodes the persisted research payload.
func (i *Item) Research() (ResearchPayload, error) {
	var payload ResearchPayload
	if i.ResearchJSON == "" {
		return payload, nil
	}
	if err := json.Unmarshal([]byte(i.ResearchJSON), &payload); err != nil {
		return payload, fmt.Errorf("decode research payload: %w", err)
	}
	return payload, nil
}

// SetResearch persists the research payload on the item.
func (i *Item) SetResearch(payload ResearchPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode research payload: %w", err)
	}
	i.ResearchJSON = string(data)
	return nil
}

// Assets decodes the persisted asset manifest.
func (i *Item) Assets() ([]Asset, error) {
	if i.AssetsJSON == "" {
		return nil, nil
	}
	var assets []Asset
	if err := json.Unmarshal([]byte(i.AssetsJSON), &assets); err != nil {
		return nil, fmt.Errorf("decode asset manifest: %w", err)
	}
	return assets, nil
}

// SetAssets persists the asset manifest on the item.
func (i *Item) SetAssets(assets []Asset) error {
	data, err := json.Marshal(assets)
	if err != nil {
		return fmt.Errorf("encode asset manifest: %w", err)
	}
	i.AssetsJSON = string(data)
	return nil
}

// PublishMeta decodes the persisted publish metadata.
func (i *Item) PublishMeta() (PublishMetadata, error) {
	var meta PublishMetadata
	if i.PublishMetaJSON == "" {
		return meta, nil
	}
	if err := json.Unmarshal([]byte(i.PublishMetaJSON), &meta); err != nil {
		return meta, fmt.Errorf("decode publish metadata: %w", err)
	}
	return meta, nil
}

// SetPublishMeta persists publish metadata on the item.
func (i *Item) SetPublishMeta(meta PublishMetadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode publish metadata: %w", err)
	}
	i.PublishMetaJSON = string(data)
	return nil
}
