/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package testmodels holds the blog entity definitions used by tests and examples
package testmodels

import (
	"context"

	"github.com/go-openapi/strfmt"
	"github.com/suparena/entitysync/entity"
)

// UserDefinition: a user writes posts
var UserDefinition = &entity.Definition{
	Type: "User",
	Fields: []entity.Field{
		{Name: "id", Format: entity.FormatInt},
		{Name: "name", Format: entity.FormatString},
		{Name: "email", Format: entity.FormatString},
		{Name: "createdAt", Format: entity.FormatDateTime},
	},
	Relationships: []entity.Relationship{
		{Name: "posts", Target: "Post", Cardinality: entity.OneToMany, FilterField: "authorId"},
	},
}

// PostDefinition: a post has one author and many comments
var PostDefinition = &entity.Definition{
	Type: "Post",
	Fields: []entity.Field{
		{Name: "id", Format: entity.FormatInt},
		{Name: "title", Format: entity.FormatString},
		{Name: "authorId", Format: entity.FormatInt},
		{Name: "publishedOn", Format: entity.FormatDate},
	},
	Relationships: []entity.Relationship{
		{Name: "author", Target: "User", Cardinality: entity.OneToOne},
		{Name: "comments", Target: "Comment", Cardinality: entity.OneToMany},
	},
}

// CommentDefinition: a comment belongs to a post
var CommentDefinition = &entity.Definition{
	Type: "Comment",
	Fields: []entity.Field{
		{Name: "id", Format: entity.FormatInt},
		{Name: "postId", Format: entity.FormatInt},
		{Name: "body", Format: entity.FormatString},
	},
	Relationships: []entity.Relationship{
		{Name: "post", Target: "Post", Cardinality: entity.OneToOne},
	},
}

// Definitions returns every blog definition
func Definitions() []*entity.Definition {
	return []*entity.Definition{UserDefinition, PostDefinition, CommentDefinition}
}

// User wraps a User entity
type User struct {
	*entity.Entity
}

func NewUser(e *entity.Entity) User { return User{e} }

func (u User) Name() string {
	s, _ := u.str("name")
	return s
}

func (u User) Email() string {
	s, _ := u.str("email")
	return s
}

// CreatedAt returns the zero time when unset
func (u User) CreatedAt() strfmt.DateTime {
	v, _ := u.Get("createdAt")
	dt, _ := v.(strfmt.DateTime)
	return dt
}

func (u User) Posts(ctx context.Context) ([]Post, error) {
	many, err := u.Many(ctx, "posts")
	if err != nil {
		return nil, err
	}
	posts := make([]Post, 0, len(many))
	for _, e := range many {
		posts = append(posts, Post{e})
	}
	return posts, nil
}

func (u User) str(name string) (string, bool) {
	v, ok := u.Get(name)
	s, _ := v.(string)
	return s, ok
}

// Post wraps a Post entity
type Post struct {
	*entity.Entity
}

func NewPost(e *entity.Entity) Post { return Post{e} }

func (p Post) Title() string {
	v, _ := p.Get("title")
	s, _ := v.(string)
	return s
}

// PublishedOn returns the zero date when unset
func (p Post) PublishedOn() strfmt.Date {
	v, _ := p.Get("publishedOn")
	d, _ := v.(strfmt.Date)
	return d
}

// Author returns nil when the post has no author
func (p Post) Author(ctx context.Context) (*User, error) {
	e, err := p.One(ctx, "author")
	if err != nil || e == nil {
		return nil, err
	}
	return &User{e}, nil
}
