// Package db provides integration tests for SurrealDB operations.
package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/asolanog/conversia/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testDB *Client
var testContainer testcontainers.Container

// TestMain sets up and tears down the SurrealDB container for all tests.
func TestMain(m *testing.M) {
	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	var err error
	testContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := testContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := testContainer.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testDB, err = NewClient(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := testDB.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	code := m.Run()

	_ = testDB.Close(ctx)
	_ = testContainer.Terminate(ctx)

	os.Exit(code)
}

func testDate(day int) time.Time {
	return time.Date(2026, 3, day, 10, 0, 0, 0, time.UTC)
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestUpsertConversation(t *testing.T) {
	ctx := context.Background()

	conv, err := testDB.UpsertConversation(ctx, models.ConversationUpsert{
		ID:       "upsert-conv-1",
		Title:    "Consulta de precios",
		Client:   "+34 612 345 678",
		Channel:  "Whatsapp",
		Messages: 4,
		Date:     testDate(1),
	})
	require.NoError(t, err)
	assert.Equal(t, "Consulta de precios", conv.Title)
	assert.Equal(t, "Whatsapp", conv.Channel)
	assert.Equal(t, 4, conv.Messages)

	// Re-running the same upsert must not duplicate the row
	conv2, err := testDB.UpsertConversation(ctx, models.ConversationUpsert{
		ID:       "upsert-conv-1",
		Title:    "Consulta de precios (actualizada)",
		Client:   "+34 612 345 678",
		Channel:  "Whatsapp",
		Messages: 6,
		Date:     testDate(1),
	})
	require.NoError(t, err)
	assert.Equal(t, conv.ID, conv2.ID)
	assert.Equal(t, "Consulta de precios (actualizada)", conv2.Title)
	assert.Equal(t, 6, conv2.Messages)

	fetched, err := testDB.GetConversation(ctx, "upsert-conv-1")
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "Consulta de precios (actualizada)", fetched.Title)
}

func TestGetConversationNotFound(t *testing.T) {
	ctx := context.Background()

	conv, err := testDB.GetConversation(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, conv)
}

func TestListConversationsChannelFilter(t *testing.T) {
	ctx := context.Background()

	for i, ch := range []string{"Web", "Whatsapp", "Web"} {
		_, err := testDB.UpsertConversation(ctx, models.ConversationUpsert{
			ID:       fmt.Sprintf("list-conv-%d", i),
			Title:    fmt.Sprintf("Conversación %d", i),
			Client:   "Sin cliente",
			Channel:  ch,
			Messages: 0,
			Date:     testDate(i + 2),
		})
		require.NoError(t, err)
	}

	all, err := testDB.ListConversations(ctx, "", 100)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(all), 3)

	wa, err := testDB.ListConversations(ctx, "Whatsapp", 100)
	require.NoError(t, err)
	for _, c := range wa {
		assert.Equal(t, "Whatsapp", c.Channel)
	}

	// Descending by date
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i-1].Date.Before(all[i].Date), "conversations should be ordered newest first")
	}
}

func TestMessagesOrderedByTimestamp(t *testing.T) {
	ctx := context.Background()

	_, err := testDB.UpsertConversation(ctx, models.ConversationUpsert{
		ID:      "msg-conv-1",
		Title:   "Orden de mensajes",
		Client:  "Sin cliente",
		Channel: "Web",
		Date:    testDate(5),
	})
	require.NoError(t, err)

	base := testDate(5)
	// Insert out of order on purpose
	for _, m := range []struct {
		id     string
		sender string
		offset time.Duration
	}{
		{"msg-1-answer", models.SenderAgent, time.Second},
		{"msg-1-query", models.SenderClient, 0},
		{"msg-2-query", models.SenderClient, 2 * time.Second},
	} {
		_, err := testDB.UpsertMessage(ctx, models.MessageUpsert{
			ID:             m.id,
			ConversationID: "msg-conv-1",
			Content:        "contenido",
			Sender:         m.sender,
			Timestamp:      base.Add(m.offset),
		})
		require.NoError(t, err)
	}

	msgs, err := testDB.ListMessages(ctx, "msg-conv-1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].Timestamp.Before(msgs[i-1].Timestamp), "messages should be ordered by timestamp")
	}

	count, err := testDB.CountMessages(ctx, "msg-conv-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, testDB.SetConversationMessageCount(ctx, "msg-conv-1", count))
	conv, err := testDB.GetConversation(ctx, "msg-conv-1")
	require.NoError(t, err)
	assert.Equal(t, 3, conv.Messages)
}

func TestDatesInRange(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := testDB.UpsertConversation(ctx, models.ConversationUpsert{
			ID:      fmt.Sprintf("range-conv-%d", i),
			Title:   "Rango",
			Client:  "Sin cliente",
			Channel: "Web",
			Date:    time.Date(2026, 7, 10+i, 12, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}

	dates, err := testDB.DatesInRange(ctx, "conversation", "date",
		time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 7, 11, 23, 59, 59, 0, time.UTC),
	)
	require.NoError(t, err)
	assert.Len(t, dates, 2)

	// Unknown table/field combinations are rejected
	_, err = testDB.DatesInRange(ctx, "profile", "created_at", testDate(1), testDate(2))
	assert.Error(t, err)
}

// =============================================================================
// PRODUCT TESTS
// =============================================================================

func TestProductTypes(t *testing.T) {
	ctx := context.Background()

	desc := "Seguro de hogar multirriesgo"
	created, err := testDB.CreateProductType(ctx, models.ProductTypeInput{
		Name:        "Seguro Hogar",
		Description: &desc,
		Keywords:    []string{"hogar", "vivienda"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Seguro Hogar", created.Name)
	assert.Len(t, created.Keywords, 2)

	// Duplicate name hits the unique index
	_, err = testDB.CreateProductType(ctx, models.ProductTypeInput{Name: "Seguro Hogar"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	byName, err := testDB.GetProductTypeByName(ctx, "Seguro Hogar")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, created.ID, byName.ID)

	missing, err := testDB.GetProductTypeByName(ctx, "No Existe")
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := testDB.ListProductTypes(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(list), 1)
}

func TestProductMentionsAndStats(t *testing.T) {
	ctx := context.Background()

	pt, err := testDB.CreateProductType(ctx, models.ProductTypeInput{
		Name:     "Seguro Auto",
		Keywords: []string{"coche", "auto"},
	})
	require.NoError(t, err)

	_, err = testDB.UpsertConversation(ctx, models.ConversationUpsert{
		ID:      "mention-conv-1",
		Title:   "Pregunta sobre seguro de coche",
		Client:  "Sin cliente",
		Channel: "Web",
		Date:    testDate(8),
	})
	require.NoError(t, err)

	msg, err := testDB.UpsertMessage(ctx, models.MessageUpsert{
		ID:             "mention-msg-1",
		ConversationID: "mention-conv-1",
		Content:        "Quiero información sobre el seguro de coche",
		Sender:         models.SenderClient,
		Timestamp:      testDate(8),
	})
	require.NoError(t, err)

	mention, err := testDB.CreateProductMention(ctx, models.ProductMentionInput{
		ProductID:      models.MustRecordIDString(pt.ID),
		ConversationID: "mention-conv-1",
		MessageID:      models.MustRecordIDString(msg.ID),
		Context:        "Quiero información sobre el seguro de coche",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, mention.Context)

	stats, err := testDB.ProductStats(ctx,
		testDate(8).Add(-time.Hour), testDate(8).Add(time.Hour))
	require.NoError(t, err)

	found := false
	for _, s := range stats {
		if s.Name == "Seguro Auto" {
			found = true
			assert.GreaterOrEqual(t, s.Mentions, 1)
		}
	}
	assert.True(t, found, "stats should include Seguro Auto")
}

// =============================================================================
// REFERRAL TESTS
// =============================================================================

func TestReferralTypesSeeded(t *testing.T) {
	ctx := context.Background()

	types, err := testDB.ListReferralTypes(ctx)
	require.NoError(t, err)
	require.Len(t, types, 5)

	names := make(map[string]bool)
	for _, rt := range types {
		names[rt.Name] = true
		assert.NotEmpty(t, rt.Email)
	}
	for _, want := range models.ReferralTypeNames {
		assert.True(t, names[want], "missing seeded referral type %q", want)
	}

	// Re-seeding is idempotent
	require.NoError(t, testDB.SeedReferralTypes(ctx))
	again, err := testDB.ListReferralTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, again, 5)
}

func TestReferralsAndStats(t *testing.T) {
	ctx := context.Background()

	_, err := testDB.UpsertConversation(ctx, models.ConversationUpsert{
		ID:      "ref-conv-1",
		Title:   "Derivación a soporte",
		Client:  "Sin cliente",
		Channel: "Web",
		Date:    testDate(12),
	})
	require.NoError(t, err)

	notes := "cliente enfadado"
	ref, err := testDB.CreateReferral(ctx, "ref-conv-1", "soporte_tecnico", &notes)
	require.NoError(t, err)
	require.NotNil(t, ref.Notes)
	assert.Equal(t, notes, *ref.Notes)

	list, err := testDB.ListReferrals(ctx, 100)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(list), 1)

	stats, err := testDB.ReferralStats(ctx,
		time.Now().UTC().Add(-time.Hour), time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)

	found := false
	for _, s := range stats {
		if s.Name == models.ReferralSoporteTecnico {
			found = true
			assert.GreaterOrEqual(t, s.Referrals, 1)
		}
	}
	assert.True(t, found, "stats should include Soporte Técnico")
}

// =============================================================================
// USER / ROLE TESTS
// =============================================================================

func TestProfilesAndRoles(t *testing.T) {
	ctx := context.Background()

	name := "Ana López"
	profile, err := testDB.UpsertProfile(ctx, "user-ana", "ana@example.com", &name)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", profile.Email)

	byEmail, err := testDB.GetProfileByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)

	// No roles yet
	role, err := testDB.GetUserRole(ctx, "user-ana")
	require.NoError(t, err)
	assert.Empty(t, role)

	_, err = testDB.AssignRole(ctx, "user-ana", models.RoleAdmin)
	require.NoError(t, err)

	// Double grant hits the unique [user, role] index
	_, err = testDB.AssignRole(ctx, "user-ana", models.RoleAdmin)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	role, err = testDB.GetUserRole(ctx, "user-ana")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)

	// admin satisfies usuario and admin, not super_admin
	for _, tc := range []struct {
		required models.Role
		want     bool
	}{
		{models.RoleUsuario, true},
		{models.RoleAdmin, true},
		{models.RoleSuperAdmin, false},
	} {
		ok, err := testDB.HasRole(ctx, "user-ana", tc.required)
		require.NoError(t, err)
		assert.Equal(t, tc.want, ok, "required role %s", tc.required)
	}

	// super_admin grant raises the effective role
	_, err = testDB.AssignRole(ctx, "user-ana", models.RoleSuperAdmin)
	require.NoError(t, err)
	role, err = testDB.GetUserRole(ctx, "user-ana")
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, role)
}

// =============================================================================
// INVITATION TESTS
// =============================================================================

func TestInvitationLifecycle(t *testing.T) {
	ctx := context.Background()

	_, err := testDB.UpsertProfile(ctx, "user-inviter", "inviter@example.com", nil)
	require.NoError(t, err)

	expires := time.Now().UTC().Add(48 * time.Hour)
	inv, err := testDB.CreateInvitation(ctx, "inv-token-1", "nuevo@example.com", expires, "user-inviter")
	require.NoError(t, err)
	assert.False(t, inv.Used)
	assert.True(t, inv.ValidAt(time.Now().UTC()))

	fetched, err := testDB.GetInvitation(ctx, "inv-token-1")
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "nuevo@example.com", fetched.Email)

	missing, err := testDB.GetInvitation(ctx, "no-such-token")
	require.NoError(t, err)
	assert.Nil(t, missing)

	used, err := testDB.MarkInvitationUsed(ctx, "inv-token-1")
	require.NoError(t, err)
	assert.True(t, used.Used)

	// Second redemption fails: the conditional update matches nothing
	_, err = testDB.MarkInvitationUsed(ctx, "inv-token-1")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := testDB.ListInvitations(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(list), 1)
}
