// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyward Contributors

//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"golang.org/x/crypto/bcrypt"

	"github.com/keyward/keyward/internal/auth"
	"github.com/keyward/keyward/internal/auth/postgres"
)

var _ = Describe("UserStore", func() {
	var (
		ctx   context.Context
		users *postgres.UserStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		truncateUsers(ctx)
		users = postgres.NewUserStore(testPool)
	})

	Describe("InsertUser", func() {
		It("stores a user that can be found case-insensitively", func() {
			created, err := users.InsertUser(ctx, "Alice@Example.com", []byte("hash"))
			Expect(err).NotTo(HaveOccurred())

			res, err := users.FindByEmail(ctx, "alice@example.COM")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Found).To(BeTrue())
			Expect(res.User.ID).To(Equal(created.ID))
			Expect(res.User.Email).To(Equal("Alice@Example.com"))
			Expect(res.User.HashedPassword).To(Equal([]byte("hash")))
			Expect(res.User.SessionToken).To(BeNil())
			Expect(res.User.CreatedAt).To(BeTemporally("~", created.CreatedAt))
		})

		It("rejects a second user with the same email in any case", func() {
			_, err := users.InsertUser(ctx, "a@b.com", []byte("first"))
			Expect(err).NotTo(HaveOccurred())

			_, err = users.InsertUser(ctx, "A@B.COM", []byte("second"))
			Expect(err).To(MatchError(auth.ErrDuplicateUser))

			res, err := users.FindByEmail(ctx, "a@b.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.User.HashedPassword).To(Equal([]byte("first")))
		})

		It("lets exactly one concurrent insert win", func() {
			const workers = 10
			var (
				wg   sync.WaitGroup
				mu   sync.Mutex
				wins int
				dups int
			)
			for range workers {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := users.InsertUser(ctx, "race@b.com", []byte("h"))
					mu.Lock()
					defer mu.Unlock()
					if err == nil {
						wins++
					} else if errors.Is(err, auth.ErrDuplicateUser) {
						dups++
					}
				}()
			}
			wg.Wait()
			Expect(wins).To(Equal(1))
			Expect(dups).To(Equal(workers - 1))
		})
	})

	Describe("FindByEmail", func() {
		It("reports an unknown email as not found", func() {
			res, err := users.FindByEmail(ctx, "nobody@b.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Found).To(BeFalse())
		})
	})

	Describe("UpdateUser", func() {
		It("replaces the session token", func() {
			u, err := users.InsertUser(ctx, "a@b.com", []byte("h"))
			Expect(err).NotTo(HaveOccurred())

			Expect(users.UpdateUser(ctx, u.ID, auth.FieldSessionToken, "t1")).To(Succeed())
			Expect(users.UpdateUser(ctx, u.ID, auth.FieldSessionToken, "t2")).To(Succeed())

			res, err := users.FindBySessionToken(ctx, "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Found).To(BeFalse())

			res, err = users.FindBySessionToken(ctx, "t2")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Found).To(BeTrue())
			Expect(res.User.ID).To(Equal(u.ID))
			Expect(*res.User.SessionToken).To(Equal("t2"))
		})

		It("reports an unknown id as not found", func() {
			err := users.UpdateUser(ctx, ulid.Make(), auth.FieldSessionToken, "t")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})

	Describe("List", func() {
		It("returns users in id order", func() {
			first, err := users.InsertUser(ctx, "a@b.com", []byte("h"))
			Expect(err).NotTo(HaveOccurred())
			second, err := users.InsertUser(ctx, "c@d.com", []byte("h"))
			Expect(err).NotTo(HaveOccurred())

			all, err := users.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))
			Expect(all[0].ID).To(Equal(first.ID))
			Expect(all[1].ID).To(Equal(second.ID))
		})
	})
})

var _ = Describe("Service on PostgreSQL", func() {
	It("registers, validates and issues sessions", func() {
		ctx := context.Background()
		truncateUsers(ctx)

		hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
		Expect(err).NotTo(HaveOccurred())
		svc, err := auth.NewService(postgres.NewUserStore(testPool), hasher)
		Expect(err).NotTo(HaveOccurred())

		_, err = svc.Register(ctx, "a@b.com", "pw1")
		Expect(err).NotTo(HaveOccurred())
		_, err = svc.Register(ctx, "a@b.com", "pw2")
		Expect(err).To(MatchError(auth.ErrDuplicateUser))

		Expect(svc.ValidateLogin(ctx, "a@b.com", "pw1")).To(BeTrue())
		Expect(svc.ValidateLogin(ctx, "a@b.com", "pw2")).To(BeFalse())
		Expect(svc.ValidateLogin(ctx, "x@y.com", "pw1")).To(BeFalse())

		token, ok, err := svc.CreateSession(ctx, "a@b.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())

		user, ok, err := svc.UserFromSession(ctx, token)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(user.Email).To(Equal("a@b.com"))
	})
})
