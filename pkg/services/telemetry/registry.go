package telemetry

import (
	"context"
	"fmt"

	"github.com/de-tools/workspace-steward/pkg/models/domain"
	"gopkg.in/ini.v1"
)

// Profile is one governed workspace's connection entry, read from a
// databrickscfg-style ini file with a section per workspace.
type Profile struct {
	Name     string
	Host     string
	Token    string
	Resource domain.ResourceType
}

// Registry resolves the connection profiles of the governed workspaces.
type Registry interface {
	GetProfiles(ctx context.Context) ([]string, error)
	GetProfile(ctx context.Context, name string) (Profile, error)
}

type cfgRegistry struct {
	cfg *ini.File
}

func NewRegistry(path string) (Registry, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	return &cfgRegistry{cfg: cfg}, nil
}

func (cr *cfgRegistry) GetProfiles(_ context.Context) ([]string, error) {
	var profiles []string
	for _, section := range cr.cfg.Sections() {
		if len(section.Keys()) > 0 {
			profiles = append(profiles, section.Name())
		}
	}
	return profiles, nil
}

func (cr *cfgRegistry) GetProfile(_ context.Context, name string) (Profile, error) {
	section := cr.cfg.Section(name)
	if section == nil || len(section.Keys()) == 0 {
		return Profile{}, fmt.Errorf("profile %s not found", name)
	}

	resource := domain.ResourceType(section.Key("resource_type").MustString(string(domain.ResourceTypeStandard)))

	return Profile{
		Name:     name,
		Host:     section.Key("host").String(),
		Token:    section.Key("token").String(),
		Resource: resource,
	}, nil
}
