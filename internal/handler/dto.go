package handler

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/roomie/internal/model"
	"github.com/mmeshcher/roomie/internal/service"
)

// money сериализуется в JSON числом с двумя знаками после запятой.
type money decimal.Decimal

func (m money) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(m).StringFixed(2)), nil
}

type messageResponse struct {
	Message string `json:"message"`
}

type userResponse struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func toUser(u model.User) userResponse {
	return userResponse{ID: u.ID.String(), Name: u.Name, Email: u.Email}
}

func toUsers(users []model.User) []userResponse {
	res := make([]userResponse, 0, len(users))
	for _, u := range users {
		res = append(res, toUser(u))
	}
	return res
}

type flatResponse struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Owner       string    `json:"owner"`
	Members     []string  `json:"members"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toFlat(f model.Flat) flatResponse {
	members := make([]string, 0, len(f.MemberIDs))
	for _, id := range f.MemberIDs {
		members = append(members, id.String())
	}
	return flatResponse{
		ID:          f.ID.String(),
		Name:        f.Name,
		Description: f.Description,
		Owner:       f.OwnerID.String(),
		Members:     members,
		CreatedAt:   f.CreatedAt,
	}
}

type flatDetailsResponse struct {
	ID          string         `json:"_id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Owner       string         `json:"owner"`
	Members     []userResponse `json:"members"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func toFlatDetails(d *service.FlatDetails) flatDetailsResponse {
	return flatDetailsResponse{
		ID:          d.ID.String(),
		Name:        d.Name,
		Description: d.Description,
		Owner:       d.OwnerID.String(),
		Members:     toUsers(d.Members),
		CreatedAt:   d.CreatedAt,
	}
}

type expenseResponse struct {
	ID           string         `json:"_id"`
	Flat         string         `json:"flat"`
	Title        string         `json:"title"`
	Amount       money          `json:"amount"`
	PaidBy       userResponse   `json:"paidBy"`
	SplitBetween []userResponse `json:"splitBetween"`
	Category     string         `json:"category"`
	Notes        string         `json:"notes"`
	ImageURL     string         `json:"imageUrl"`
	Date         time.Time      `json:"date"`
	CreatedBy    userResponse   `json:"createdBy"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

func toExpense(e service.ExpenseDetails) expenseResponse {
	return expenseResponse{
		ID:           e.ID.String(),
		Flat:         e.FlatID.String(),
		Title:        e.Title,
		Amount:       money(e.Amount),
		PaidBy:       toUser(e.Payer),
		SplitBetween: toUsers(e.Participants),
		Category:     string(e.Category),
		Notes:        e.Notes,
		ImageURL:     e.ImageURL,
		Date:         e.Date,
		CreatedBy:    toUser(e.Creator),
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func toExpenses(expenses []service.ExpenseDetails) []expenseResponse {
	res := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		res = append(res, toExpense(e))
	}
	return res
}

type taskResponse struct {
	ID          string        `json:"_id"`
	Flat        string        `json:"flat"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	CreatedBy   userResponse  `json:"createdBy"`
	AssignedTo  *userResponse `json:"assignedTo"`
	Status      string        `json:"status"`
	DueDate     *time.Time    `json:"dueDate"`
	ImageURL    string        `json:"imageUrl"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func toTask(t service.TaskDetails) taskResponse {
	res := taskResponse{
		ID:          t.ID.String(),
		Flat:        t.FlatID.String(),
		Title:       t.Title,
		Description: t.Description,
		CreatedBy:   toUser(t.Creator),
		Status:      string(t.Status),
		DueDate:     t.DueDate,
		ImageURL:    t.ImageURL,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.Assignee != nil {
		u := toUser(*t.Assignee)
		res.AssignedTo = &u
	}
	return res
}

type balanceEntryResponse struct {
	User      userResponse `json:"user"`
	Net       money        `json:"net"`
	NonMember bool         `json:"nonMember,omitempty"`
}

func toBalanceEntries(entries []service.MemberBalance) []balanceEntryResponse {
	res := make([]balanceEntryResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, balanceEntryResponse{User: toUser(e.User), Net: money(e.Net), NonMember: e.NonMember})
	}
	return res
}

type settlementResponse struct {
	From   userResponse `json:"from"`
	To     userResponse `json:"to"`
	Amount money        `json:"amount"`
}

func toSettlements(settlements []service.Settlement) []settlementResponse {
	res := make([]settlementResponse, 0, len(settlements))
	for _, s := range settlements {
		res = append(res, settlementResponse{From: toUser(s.From), To: toUser(s.To), Amount: money(s.Amount)})
	}
	return res
}

type invitationResponse struct {
	ID        string    `json:"_id"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	InvitedBy string    `json:"invitedBy"`
}

func toInvitation(inv model.Invitation) invitationResponse {
	return invitationResponse{
		ID:        inv.ID.String(),
		Email:     inv.Email,
		Status:    string(inv.Status),
		ExpiresAt: inv.ExpiresAt,
		CreatedAt: inv.CreatedAt,
		InvitedBy: inv.InvitedBy.String(),
	}
}

// parseDate принимает дату в формате RFC 3339 или YYYY-MM-DD.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// parseIDs разбирает список идентификаторов, пустые строки пропускаются.
func parseIDs(raw []string) ([]uuid.UUID, bool) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		if strings.TrimSpace(s) == "" {
			continue
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}
