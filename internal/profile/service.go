package profile

import (
	"context"
	"time"

	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/model"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/reject"
	"github.com/Jasperhuting/oracle-games-backend/internal/pkg/store"
)

type ProfileService struct {
	Store store.Store
	Now   func() time.Time
}

// FindOrCreateByEmail resolves the verified token identity to a user
// document, creating it on first login.
func (s *ProfileService) FindOrCreateByEmail(ctx context.Context, email, playername, googleIdentityId string) (*Profile, *reject.ProblemWithTrace) {
	snaps, err := s.Store.Query(ctx, store.Users, store.Query{
		Filters: []store.Filter{
			{Field: "email", Op: "==", Value: email},
		},
		Limit: 1,
	})
	if err != nil {
		return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}

	if len(snaps) > 0 {
		var user model.User
		if err := snaps[0].DataTo(&user); err != nil {
			return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
		}
		user.Id = snaps[0].ID()
		return toProfile(user), nil
	}

	user := model.User{
		Email:            email,
		Playername:       playername,
		GoogleIdentityId: googleIdentityId,
		CreatedAt:        s.Now(),
	}
	id, err := s.Store.Add(ctx, store.Users, user)
	if err != nil {
		return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}
	user.Id = id

	return toProfile(user), nil
}

func (s *ProfileService) FindByEmail(ctx context.Context, email string) (*Profile, *reject.ProblemWithTrace) {
	snaps, err := s.Store.Query(ctx, store.Users, store.Query{
		Filters: []store.Filter{
			{Field: "email", Op: "==", Value: email},
		},
		Limit: 1,
	})
	if err != nil {
		return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}
	if len(snaps) == 0 {
		return nil, nil
	}

	var user model.User
	if err := snaps[0].DataTo(&user); err != nil {
		return nil, &reject.ProblemWithTrace{Problem: reject.UnexpectedProblem(err), Cause: err}
	}
	user.Id = snaps[0].ID()
	return toProfile(user), nil
}

func toProfile(user model.User) *Profile {
	return &Profile{
		Id:             user.Id,
		Email:          user.Email,
		Playername:     user.Playername,
		TelegramChatId: user.TelegramChatId,
		CreatedAt:      user.CreatedAt,
	}
}
