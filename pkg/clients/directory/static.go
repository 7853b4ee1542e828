package directory

import "context"

// StaticClient serves a fixed roster. The CLI loads it from configuration;
// tests build it inline. It stands in for the external directory service,
// which is consumed, never implemented, by this core.
type StaticClient struct {
	people map[string]Person
}

func NewStaticClient(people []Person) *StaticClient {
	byID := make(map[string]Person, len(people))
	for _, p := range people {
		byID[p.ID] = p
	}
	return &StaticClient{people: byID}
}

func (s *StaticClient) GetPerson(ctx context.Context, id string) (Person, bool, error) {
	p, ok := s.people[id]
	return p, ok, nil
}

func (s *StaticClient) GetPeople(ctx context.Context, ids []string) (map[string]Person, error) {
	out := make(map[string]Person)
	for _, id := range ids {
		if p, ok := s.people[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}
