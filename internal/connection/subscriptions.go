package connection

// topicSet is an insertion-ordered set of symbols.
type topicSet struct {
	order []string
	index map[string]struct{}
}

func (s *topicSet) add(symbols []string) []string {
	if s.index == nil {
		s.index = make(map[string]struct{})
	}

	var added []string
	for _, sym := range symbols {
		if sym == "" {
			continue
		}
		if _, ok := s.index[sym]; ok {
			continue
		}
		s.index[sym] = struct{}{}
		s.order = append(s.order, sym)
		added = append(added, sym)
	}
	return added
}

func (s *topicSet) remove(symbols []string) []string {
	var removed []string
	for _, sym := range symbols {
		if _, ok := s.index[sym]; !ok {
			continue
		}
		delete(s.index, sym)
		removed = append(removed, sym)
	}
	if len(removed) == 0 {
		return nil
	}

	kept := s.order[:0]
	for _, sym := range s.order {
		if _, ok := s.index[sym]; ok {
			kept = append(kept, sym)
		}
	}
	s.order = kept
	return removed
}

func (s *topicSet) list() []string {
	if len(s.order) == 0 {
		return nil
	}
	return append([]string(nil), s.order...)
}

// tracker holds the symbols a stream should be subscribed to, per category.
type tracker struct {
	trades topicSet
	quotes topicSet
	bars   topicSet
}

// add unions t into the tracked sets and returns only the newly added symbols.
func (tr *tracker) add(t Topics) Topics {
	return Topics{
		Trades: tr.trades.add(t.Trades),
		Quotes: tr.quotes.add(t.Quotes),
		Bars:   tr.bars.add(t.Bars),
	}
}

// remove drops t from the tracked sets and returns the symbols that were tracked.
func (tr *tracker) remove(t Topics) Topics {
	return Topics{
		Trades: tr.trades.remove(t.Trades),
		Quotes: tr.quotes.remove(t.Quotes),
		Bars:   tr.bars.remove(t.Bars),
	}
}

// all returns the full tracked set.
func (tr *tracker) all() Topics {
	return Topics{
		Trades: tr.trades.list(),
		Quotes: tr.quotes.list(),
		Bars:   tr.bars.list(),
	}
}
