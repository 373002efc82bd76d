package membership

// cardSet is a set of card numbers that remembers insertion order.
type cardSet struct {
	order   []string
	members map[string]struct{}
}

func newCardSet() *cardSet {
	return &cardSet{
		members: make(map[string]struct{}),
	}
}

func (s *cardSet) add(cardNumber string) {
	if s.contains(cardNumber) {
		return
	}

	s.members[cardNumber] = struct{}{}
	s.order = append(s.order, cardNumber)
}

func (s *cardSet) remove(cardNumber string) {
	if !s.contains(cardNumber) {
		return
	}

	delete(s.members, cardNumber)

	order := s.order[:0]
	for _, existing := range s.order {
		if existing != cardNumber {
			order = append(order, existing)
		}
	}
	s.order = order
}

func (s *cardSet) contains(cardNumber string) bool {
	_, ok := s.members[cardNumber]
	return ok
}

func (s *cardSet) values() []string {
	values := make([]string, len(s.order))
	copy(values, s.order)
	return values
}

// unionCardSets keeps the first position each card number appears at.
func unionCardSets(sets ...*cardSet) *cardSet {
	union := newCardSet()
	for _, set := range sets {
		for _, cardNumber := range set.order {
			union.add(cardNumber)
		}
	}

	return union
}
