package catalog

// Store is the immutable, process-wide catalog. It is built once during
// startup and shared by reference; nothing mutates it afterwards.
type Store struct {
	items []Opportunity
	index map[int]int
}

// NewStore copies items into a new store. Later entries with an id that is
// already present are dropped.
func NewStore(items []Opportunity) *Store {
	s := &Store{
		items: make([]Opportunity, 0, len(items)),
		index: make(map[int]int, len(items)),
	}

	for _, item := range items {
		if _, ok := s.index[item.ID]; ok {
			continue
		}
		s.index[item.ID] = len(s.items)
		s.items = append(s.items, item)
	}

	return s
}

// All returns the catalog entries in load order. The returned slice is a copy.
func (s *Store) All() []Opportunity {
	if s == nil {
		return []Opportunity{}
	}
	out := make([]Opportunity, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// ByID looks an opportunity up by its catalog id.
func (s *Store) ByID(id int) (Opportunity, bool) {
	if s == nil {
		return Opportunity{}, false
	}
	i, ok := s.index[id]
	if !ok {
		return Opportunity{}, false
	}
	return s.items[i], true
}

// SkillVocabulary lists every distinct textual skill across the catalog in
// first-seen order. The AI prompt uses it to suggest skills the catalog rewards.
func (s *Store) SkillVocabulary() []string {
	if s == nil {
		return nil
	}

	seen := make(map[string]struct{})
	vocabulary := make([]string, 0)
	for _, item := range s.items {
		for _, skill := range item.SkillsRequired {
			name, ok := skill.Text()
			if !ok || name == "" {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			vocabulary = append(vocabulary, name)
		}
	}
	return vocabulary
}
