package dns

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Do(ctx context.Context, method, path, token string, body any) error
	LastStatus() int
	LastBody() []byte
	ResponseField(field string) (any, error)
	ResponseList() ([]map[string]any, error)
	Token(alias string) string
	UserID(alias string) string
	TeamID(name string) string
	SetTeamID(name, teamID string)
	LastRecord(domain string) int64
	SetLastRecord(domain string, id int64)
	TrackAttachment(alias, teamID, domain string)
}

// RegisterSteps registers team, domain and record step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &dnsSteps{tc: tc}

	// Teams
	ctx.Step(`^"([^"]*)" creates team "([^"]*)"$`, steps.createTeam)
	ctx.Step(`^"([^"]*)" adds "([^"]*)" to team "([^"]*)" as "([^"]*)"$`, steps.addMember)
	ctx.Step(`^"([^"]*)" removes "([^"]*)" from team "([^"]*)"$`, steps.removeMember)
	ctx.Step(`^"([^"]*)" deletes team "([^"]*)"$`, steps.deleteTeam)

	// Domains
	ctx.Step(`^"([^"]*)" attaches domain "([^"]*)" to team "([^"]*)"$`, steps.attachDomain)
	ctx.Step(`^"([^"]*)" detaches domain "([^"]*)" from team "([^"]*)"$`, steps.detachDomain)
	ctx.Step(`^"([^"]*)" lists their domains$`, steps.listDomains)
	ctx.Step(`^"([^"]*)" views domain "([^"]*)"$`, steps.viewDomain)
	ctx.Step(`^the domain list should include "([^"]*)"$`, steps.domainListIncludes)
	ctx.Step(`^the domain list should not include "([^"]*)"$`, steps.domainListExcludes)

	// Records
	ctx.Step(`^"([^"]*)" creates an? "([^"]*)" record "([^"]*)" with content "([^"]*)" on "([^"]*)"$`, steps.createRecord)
	ctx.Step(`^"([^"]*)" sets the ttl of the last record on "([^"]*)" to (\d+)$`, steps.updateTTL)
	ctx.Step(`^"([^"]*)" deletes the last record on "([^"]*)"$`, steps.deleteRecord)
	ctx.Step(`^"([^"]*)" lists records on "([^"]*)"$`, steps.listRecords)
	ctx.Step(`^the record list should include the last record on "([^"]*)"$`, steps.recordListIncludesLast)
	ctx.Step(`^the record list should not include the last record on "([^"]*)"$`, steps.recordListExcludesLast)
}

type dnsSteps struct {
	tc TestContext
}

func (s *dnsSteps) createTeam(ctx context.Context, alias, name string) error {
	if err := s.tc.Do(ctx, http.MethodPost, "/teams", s.tc.Token(alias), map[string]string{"name": name}); err != nil {
		return err
	}
	if s.tc.LastStatus() != http.StatusCreated {
		return fmt.Errorf("create team %s: status %d: %s", name, s.tc.LastStatus(), s.tc.LastBody())
	}
	teamID, err := s.tc.ResponseField("id")
	if err != nil {
		return err
	}
	s.tc.SetTeamID(name, fmt.Sprint(teamID))
	return nil
}

func (s *dnsSteps) addMember(ctx context.Context, alias, member, team, role string) error {
	path := fmt.Sprintf("/teams/%s/members/%s", s.tc.TeamID(team), s.tc.UserID(member))
	return s.tc.Do(ctx, http.MethodPost, path, s.tc.Token(alias), map[string]string{"role": role})
}

func (s *dnsSteps) removeMember(ctx context.Context, alias, member, team string) error {
	path := fmt.Sprintf("/teams/%s/members/%s", s.tc.TeamID(team), s.tc.UserID(member))
	return s.tc.Do(ctx, http.MethodDelete, path, s.tc.Token(alias), nil)
}

func (s *dnsSteps) deleteTeam(ctx context.Context, alias, team string) error {
	return s.tc.Do(ctx, http.MethodDelete, "/teams/"+s.tc.TeamID(team), s.tc.Token(alias), nil)
}

func (s *dnsSteps) attachDomain(ctx context.Context, alias, domain, team string) error {
	teamID := s.tc.TeamID(team)
	err := s.tc.Do(ctx, http.MethodPost, "/teams/"+teamID+"/domains", s.tc.Token(alias), map[string]string{"name": domain})
	if err != nil {
		return err
	}
	if s.tc.LastStatus() == http.StatusCreated {
		s.tc.TrackAttachment(alias, teamID, domain)
	}
	return nil
}

func (s *dnsSteps) detachDomain(ctx context.Context, alias, domain, team string) error {
	path := fmt.Sprintf("/teams/%s/domains/%s", s.tc.TeamID(team), domain)
	return s.tc.Do(ctx, http.MethodDelete, path, s.tc.Token(alias), nil)
}

func (s *dnsSteps) listDomains(ctx context.Context, alias string) error {
	return s.tc.Do(ctx, http.MethodGet, "/domains", s.tc.Token(alias), nil)
}

func (s *dnsSteps) viewDomain(ctx context.Context, alias, domain string) error {
	return s.tc.Do(ctx, http.MethodGet, "/domains/"+domain, s.tc.Token(alias), nil)
}

func (s *dnsSteps) domainListIncludes(_ context.Context, domain string) error {
	found, err := s.listContains("name", domain)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("domain %s not listed: %s", domain, s.tc.LastBody())
	}
	return nil
}

func (s *dnsSteps) domainListExcludes(_ context.Context, domain string) error {
	found, err := s.listContains("name", domain)
	if err != nil {
		return err
	}
	if found {
		return fmt.Errorf("domain %s unexpectedly listed", domain)
	}
	return nil
}

func (s *dnsSteps) createRecord(ctx context.Context, alias, recordType, name, content, domain string) error {
	err := s.tc.Do(ctx, http.MethodPost, "/domains/"+domain+"/records", s.tc.Token(alias), map[string]string{
		"name":    name,
		"type":    recordType,
		"content": content,
	})
	if err != nil {
		return err
	}
	if s.tc.LastStatus() == http.StatusCreated {
		recordID, err := s.tc.ResponseField("id")
		if err != nil {
			return err
		}
		n, ok := recordID.(float64)
		if !ok {
			return fmt.Errorf("record id is not numeric: %v", recordID)
		}
		s.tc.SetLastRecord(domain, int64(n))
	}
	return nil
}

func (s *dnsSteps) updateTTL(ctx context.Context, alias, domain string, ttl int) error {
	return s.tc.Do(ctx, http.MethodPut, s.recordPath(domain), s.tc.Token(alias), map[string]int{"ttl": ttl})
}

func (s *dnsSteps) deleteRecord(ctx context.Context, alias, domain string) error {
	return s.tc.Do(ctx, http.MethodDelete, s.recordPath(domain), s.tc.Token(alias), nil)
}

func (s *dnsSteps) listRecords(ctx context.Context, alias, domain string) error {
	return s.tc.Do(ctx, http.MethodGet, "/domains/"+domain+"/records", s.tc.Token(alias), nil)
}

func (s *dnsSteps) recordListIncludesLast(_ context.Context, domain string) error {
	found, err := s.listContains("id", fmt.Sprint(s.tc.LastRecord(domain)))
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("record %d not listed on %s", s.tc.LastRecord(domain), domain)
	}
	return nil
}

func (s *dnsSteps) recordListExcludesLast(_ context.Context, domain string) error {
	found, err := s.listContains("id", fmt.Sprint(s.tc.LastRecord(domain)))
	if err != nil {
		return err
	}
	if found {
		return fmt.Errorf("record %d still listed on %s", s.tc.LastRecord(domain), domain)
	}
	return nil
}

func (s *dnsSteps) recordPath(domain string) string {
	return fmt.Sprintf("/domains/%s/records/%d", domain, s.tc.LastRecord(domain))
}

func (s *dnsSteps) listContains(field, want string) (bool, error) {
	list, err := s.tc.ResponseList()
	if err != nil {
		return false, err
	}
	for _, item := range list {
		if fmt.Sprint(item[field]) == want {
			return true, nil
		}
	}
	return false, nil
}
