package membership

import (
	"sort"
	"sync"

	"github.com/denhac/spacebot"
)

// Member is the read model row for one customer.
type Member struct {
	CustomerID     string   `json:"customerID"`
	IsMember       bool     `json:"isMember"`
	GithubUsername string   `json:"githubUsername"`
	CardsOnAccount []string `json:"cardsOnAccount"`
	IsTestUser     bool     `json:"isTestUser"`
	Deleted        bool     `json:"deleted"`
}

type membersProjection struct {
	mux     sync.RWMutex
	members map[string]*memberRow
}

type memberRow struct {
	isMember       bool
	githubUsername string
	cardsOnAccount *cardSet
	isTestUser     bool
	deleted        bool
}

// NewMembersProjection constructs a projection of the current members.
func NewMembersProjection() *membersProjection {
	return &membersProjection{
		members: make(map[string]*memberRow),
	}
}

// Reset clears every member before a replay.
func (p *membersProjection) Reset() {
	p.mux.Lock()
	p.members = make(map[string]*memberRow)
	p.mux.Unlock()
}

// Accept receives a Record.
func (p *membersProjection) Accept(record *spacebot.Record) {
	if record.AggregateType != AggregateType {
		return
	}

	p.mux.Lock()
	defer p.mux.Unlock()

	row := p.row(record.AggregateID)

	switch e := record.Data.(type) {

	case *CustomerCreated, *CustomerUpdated, *CustomerImported:
		row.deleted = false

	case *CustomerDeleted:
		row.deleted = true

	case *CardAdded:
		row.cardsOnAccount.add(e.CardNumber)

	case *CardRemoved:
		row.cardsOnAccount.remove(e.CardNumber)

	case *SubscriptionCreated:
		row.sawSubscription(e.Subscription)

	case *SubscriptionUpdated:
		row.sawSubscription(e.Subscription)

	case *SubscriptionImported:
		row.sawSubscription(e.Subscription)

	case *SubscriptionStatusChanged:
		if e.NewStatus == StatusActive {
			row.isMember = true
		}

	case *MembershipActivated:
		row.isMember = true

	case *MembershipDeactivated:
		row.isMember = false

	case *GithubUsernameUpdated:
		row.githubUsername = e.NewUsername

	case *CustomerIsNoEventTestUser:
		row.isTestUser = true

	}
}

// Member returns the read model for customerID.
func (p *membersProjection) Member(customerID string) (Member, bool) {
	p.mux.RLock()
	defer p.mux.RUnlock()

	row, ok := p.members[customerID]
	if !ok {
		return Member{}, false
	}

	return row.toMember(customerID), true
}

// ActiveMembers returns current members that are not test users, sorted by customer id.
func (p *membersProjection) ActiveMembers() []Member {
	p.mux.RLock()
	defer p.mux.RUnlock()

	members := make([]Member, 0)
	for customerID, row := range p.members {
		if row.isMember && !row.isTestUser && !row.deleted {
			members = append(members, row.toMember(customerID))
		}
	}

	sort.Slice(members, func(i, j int) bool {
		return members[i].CustomerID < members[j].CustomerID
	})

	return members
}

func (p *membersProjection) row(customerID string) *memberRow {
	row, ok := p.members[customerID]
	if !ok {
		row = &memberRow{cardsOnAccount: newCardSet()}
		p.members[customerID] = row
	}

	return row
}

func (r *memberRow) sawSubscription(subscription Subscription) {
	if subscription.Status == StatusActive {
		r.isMember = true
	}
}

func (r *memberRow) toMember(customerID string) Member {
	return Member{
		CustomerID:     customerID,
		IsMember:       r.isMember,
		GithubUsername: r.githubUsername,
		CardsOnAccount: r.cardsOnAccount.values(),
		IsTestUser:     r.isTestUser,
		Deleted:        r.deleted,
	}
}
