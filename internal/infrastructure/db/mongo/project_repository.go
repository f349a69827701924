package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/element-app/backend/internal/core/domain"
)

const (
	projectsCollection = "projects"
	milestonesCounter  = "milestones"
)

// ProjectRepository persists projects with their escrow balance and embedded
// milestones. Balance mutations and the milestone payment claim are
// conditional single-document updates, which MongoDB applies atomically.
type ProjectRepository struct {
	db   *mongo.Database
	coll *mongo.Collection
}

func NewProjectRepository(db *mongo.Database) *ProjectRepository {
	return &ProjectRepository{db: db, coll: db.Collection(projectsCollection)}
}

type milestoneDoc struct {
	ID              int64   `bson:"id"`
	Description     string  `bson:"description"`
	DueDate         int64   `bson:"due_date"`
	Completed       bool    `bson:"completed"`
	Payment         float64 `bson:"payment"`
	PaymentReleased bool    `bson:"payment_released"`
}

type projectDoc struct {
	ID            int64          `bson:"_id"`
	Name          string         `bson:"name"`
	Budget        float64        `bson:"budget"`
	EscrowBalance float64        `bson:"escrow_balance"`
	Status        string         `bson:"status"`
	DependsOn     []int64        `bson:"depends_on,omitempty"`
	Milestones    []milestoneDoc `bson:"milestones,omitempty"`
	CreatedAt     int64          `bson:"created_at"`
}

func (d projectDoc) toDomain() *domain.Project {
	p := &domain.Project{
		ID:            d.ID,
		Name:          d.Name,
		Budget:        d.Budget,
		EscrowBalance: d.EscrowBalance,
		Status:        domain.ProjectStatus(d.Status),
		DependsOn:     d.DependsOn,
		CreatedAt:     unixToTime(d.CreatedAt),
	}
	for _, m := range d.Milestones {
		p.Milestones = append(p.Milestones, milestoneFromDoc(d.ID, m))
	}
	return p
}

func milestoneFromDoc(projectID int64, m milestoneDoc) domain.Milestone {
	return domain.Milestone{
		ID:              m.ID,
		ProjectID:       projectID,
		Description:     m.Description,
		DueDate:         unixToTime(m.DueDate),
		Completed:       m.Completed,
		Payment:         m.Payment,
		PaymentReleased: m.PaymentReleased,
	}
}

func (r *ProjectRepository) Create(ctx context.Context, p *domain.Project) (*domain.Project, error) {
	id, err := nextSequence(ctx, r.db, projectsCollection)
	if err != nil {
		return nil, err
	}

	doc := projectDoc{
		ID:            id,
		Name:          p.Name,
		Budget:        p.Budget,
		EscrowBalance: 0,
		Status:        string(p.Status),
		CreatedAt:     p.CreatedAt.Unix(),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}

	created := *p
	created.ID = id
	return &created, nil
}

func (r *ProjectRepository) FindByID(ctx context.Context, id int64) (*domain.Project, error) {
	var doc projectDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("find project: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ProjectRepository) List(ctx context.Context) ([]*domain.Project, error) {
	cur, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer cur.Close(ctx)

	var projects []*domain.Project
	for cur.Next(ctx) {
		var doc projectDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode project: %w", err)
		}
		projects = append(projects, doc.toDomain())
	}
	return projects, cur.Err()
}

func (r *ProjectRepository) UpdateStatus(ctx context.Context, id int64, status domain.ProjectStatus) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": string(status)}})
}

func (r *ProjectRepository) AddDependency(ctx context.Context, id, dependsOn int64) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$addToSet": bson.M{"depends_on": dependsOn}})
}

func (r *ProjectRepository) RemoveDependency(ctx context.Context, id, dependsOn int64) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$pull": bson.M{"depends_on": dependsOn}})
}

// CreditEscrow unconditionally increases the project's escrow balance.
func (r *ProjectRepository) CreditEscrow(ctx context.Context, id int64, amount float64) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"escrow_balance": amount}})
}

// DebitEscrow decreases escrow only when the balance covers amount. The
// balance check and the decrement are one conditional update, so concurrent
// debits cannot overdraw.
func (r *ProjectRepository) DebitEscrow(ctx context.Context, id int64, amount float64) error {
	res, err := r.coll.UpdateOne(
		ctx,
		bson.M{"_id": id, "escrow_balance": bson.M{"$gte": amount}},
		bson.M{"$inc": bson.M{"escrow_balance": -amount}},
	)
	if err != nil {
		return fmt.Errorf("debit escrow: %w", err)
	}
	if res.MatchedCount == 0 {
		if err := r.exists(ctx, id); err != nil {
			return err
		}
		return domain.ErrInsufficientFunds
	}
	return nil
}

func (r *ProjectRepository) AddMilestone(ctx context.Context, projectID int64, m *domain.Milestone) (*domain.Milestone, error) {
	id, err := nextSequence(ctx, r.db, milestonesCounter)
	if err != nil {
		return nil, err
	}

	doc := milestoneDoc{
		ID:          id,
		Description: m.Description,
		DueDate:     m.DueDate.Unix(),
		Payment:     m.Payment,
	}

	if err := r.updateOne(ctx, bson.M{"_id": projectID}, bson.M{"$push": bson.M{"milestones": doc}}); err != nil {
		return nil, err
	}

	added := *m
	added.ID = id
	added.ProjectID = projectID
	return &added, nil
}

func (r *ProjectRepository) RemoveMilestone(ctx context.Context, projectID, milestoneID int64) error {
	res, err := r.coll.UpdateOne(
		ctx,
		bson.M{"_id": projectID},
		bson.M{"$pull": bson.M{"milestones": bson.M{"id": milestoneID}}},
	)
	if err != nil {
		return fmt.Errorf("remove milestone: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrProjectNotFound
	}
	if res.ModifiedCount == 0 {
		return domain.ErrMilestoneNotFound
	}
	return nil
}

func (r *ProjectRepository) CompleteMilestone(ctx context.Context, projectID, milestoneID int64) error {
	res, err := r.coll.UpdateOne(
		ctx,
		bson.M{"_id": projectID, "milestones.id": milestoneID},
		bson.M{"$set": bson.M{"milestones.$.completed": true}},
	)
	if err != nil {
		return fmt.Errorf("complete milestone: %w", err)
	}
	if res.MatchedCount == 0 {
		return r.milestoneMissing(ctx, projectID)
	}
	return nil
}

// ClaimMilestonePayment flips payment_released false→true as one conditional
// update: the filter matches only while the flag is unset, so exactly one of
// any number of concurrent claims succeeds.
func (r *ProjectRepository) ClaimMilestonePayment(ctx context.Context, projectID, milestoneID int64) (*domain.Milestone, error) {
	var doc projectDoc
	err := r.coll.FindOneAndUpdate(
		ctx,
		bson.M{
			"_id":        projectID,
			"milestones": bson.M{"$elemMatch": bson.M{"id": milestoneID, "payment_released": false}},
		},
		bson.M{"$set": bson.M{"milestones.$.payment_released": true}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, r.claimFailure(ctx, projectID, milestoneID)
		}
		return nil, fmt.Errorf("claim milestone payment: %w", err)
	}

	for _, m := range doc.Milestones {
		if m.ID == milestoneID {
			claimed := milestoneFromDoc(projectID, m)
			return &claimed, nil
		}
	}
	return nil, domain.ErrMilestoneNotFound
}

// RevertMilestonePaymentClaim flips the flag back after a failed payout.
func (r *ProjectRepository) RevertMilestonePaymentClaim(ctx context.Context, projectID, milestoneID int64) error {
	res, err := r.coll.UpdateOne(
		ctx,
		bson.M{"_id": projectID, "milestones.id": milestoneID},
		bson.M{"$set": bson.M{"milestones.$.payment_released": false}},
	)
	if err != nil {
		return fmt.Errorf("revert milestone claim: %w", err)
	}
	if res.MatchedCount == 0 {
		return r.milestoneMissing(ctx, projectID)
	}
	return nil
}

// claimFailure distinguishes why the conditional claim matched nothing.
func (r *ProjectRepository) claimFailure(ctx context.Context, projectID, milestoneID int64) error {
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": projectID, "milestones.id": milestoneID})
	if err != nil {
		return fmt.Errorf("claim milestone payment: %w", err)
	}
	if n > 0 {
		return domain.ErrPaymentAlreadyReleased
	}
	return r.milestoneMissing(ctx, projectID)
}

func (r *ProjectRepository) milestoneMissing(ctx context.Context, projectID int64) error {
	if err := r.exists(ctx, projectID); err != nil {
		return err
	}
	return domain.ErrMilestoneNotFound
}

func (r *ProjectRepository) exists(ctx context.Context, id int64) error {
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("find project: %w", err)
	}
	if n == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

func (r *ProjectRepository) updateOne(ctx context.Context, filter, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}
