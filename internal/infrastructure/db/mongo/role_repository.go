package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/element-app/backend/internal/core/domain"
)

const rolesCollection = "roles"

type RoleRepository struct {
	db   *mongo.Database
	coll *mongo.Collection
}

func NewRoleRepository(db *mongo.Database) *RoleRepository {
	return &RoleRepository{db: db, coll: db.Collection(rolesCollection)}
}

type roleDoc struct {
	ID          int64  `bson:"_id"`
	Name        string `bson:"name"`
	Description string `bson:"description,omitempty"`
}

func (d roleDoc) toDomain() *domain.Role {
	return &domain.Role{ID: d.ID, Name: d.Name, Description: d.Description}
}

func (r *RoleRepository) Create(ctx context.Context, role *domain.Role) (*domain.Role, error) {
	id, err := nextSequence(ctx, r.db, rolesCollection)
	if err != nil {
		return nil, err
	}

	doc := roleDoc{ID: id, Name: role.Name, Description: role.Description}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert role: %w", err)
	}

	created := *role
	created.ID = id
	return &created, nil
}

func (r *RoleRepository) FindByID(ctx context.Context, id int64) (*domain.Role, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	return r.findOne(ctx, bson.M{"name": name})
}

func (r *RoleRepository) findOne(ctx context.Context, filter bson.M) (*domain.Role, error) {
	var doc roleDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrRoleNotFound
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *RoleRepository) List(ctx context.Context) ([]*domain.Role, error) {
	cur, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer cur.Close(ctx)

	var roles []*domain.Role
	for cur.Next(ctx) {
		var doc roleDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode role: %w", err)
		}
		roles = append(roles, doc.toDomain())
	}
	return roles, cur.Err()
}
