package service

import (
	"deckforge/auth-api/internal/model"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issueCode(t *testing.T, codes *CodeService, email, purpose string) *model.VerificationCode {
	t.Helper()

	code, err := codes.Issue(email, purpose)
	require.NoError(t, err)
	require.Len(t, code.Code, 6)

	return code
}

// forceCode pins a row's digits to a known value so mismatch cases don't
// depend on what the generator rolled
func forceCode(t *testing.T, codes *CodeService, id, digits string) {
	t.Helper()

	err := codes.DB.Model(model.VerificationCode{}).Where("id = ?", id).Update("code", digits).Error
	require.NoError(t, err)
}

func backdate(t *testing.T, codes *CodeService, id string, by time.Duration) {
	t.Helper()

	err := codes.DB.Model(model.VerificationCode{}).Where("id = ?", id).
		Update("created_at", time.Now().Add(-by)).Error
	require.NoError(t, err)
}

func TestVerify_Success(t *testing.T) {
	codes := NewCodeService(newTestDB(t))

	code := issueCode(t, codes, "a@b.com", model.PurposeRegister)

	err := codes.Verify("a@b.com", model.PurposeRegister, code.Code)
	require.NoError(t, err)
}

func TestVerify_ConsumedCodeIsGone(t *testing.T) {
	codes := NewCodeService(newTestDB(t))

	code := issueCode(t, codes, "a@b.com", model.PurposeRegister)

	require.NoError(t, codes.Verify("a@b.com", model.PurposeRegister, code.Code))

	// A second verify can't tell a consumed code from a never-issued one
	err := codes.Verify("a@b.com", model.PurposeRegister, code.Code)
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestVerify_NeverRequested(t *testing.T) {
	codes := NewCodeService(newTestDB(t))

	err := codes.Verify("nobody@b.com", model.PurposeRegister, "123456")
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestVerify_WrongCodeBurnsAttempt(t *testing.T) {
	codes := NewCodeService(newTestDB(t))

	code := issueCode(t, codes, "a@b.com", model.PurposeRegister)
	forceCode(t, codes, code.ID, "012345")

	err := codes.Verify("a@b.com", model.PurposeRegister, "999999")
	assert.ErrorIs(t, err, ErrCodeMismatch)

	var mismatch *CodeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 4, mismatch.AttemptsLeft)

	// The right code still works afterwards
	require.NoError(t, codes.Verify("a@b.com", model.PurposeRegister, "012345"))
}

func TestVerify_LeadingZerosMatter(t *testing.T) {
	codes := NewCodeService(newTestDB(t))

	code := issueCode(t, codes, "a@b.com", model.PurposeRegister)
	forceCode(t, codes, code.ID, "012345")

	// Numerically equal isn't good enough
	err := codes.Verify("a@b.com", model.PurposeRegister, "12345")
	assert.ErrorIs(t, err, ErrCodeMismatch)
}

func TestVerify_AttemptCap(t *testing.T) {
	codes := NewCodeService(newTestDB(t))

	code := issueCode(t, codes, "a@b.com", model.PurposeRegister)
	forceCode(t, codes, code.ID, "012345")

	for i := 0; i < codeAttempts; i++ {
		err := codes.Verify("a@b.com", model.PurposeRegister, "999999")
		assert.ErrorIs(t, err, ErrCodeMismatch)
	}

	// Cap reached, even the correct code is refused now
	err := codes.Verify("a@b.com", model.PurposeRegister, "012345")
	assert.ErrorIs(t, err, ErrCodeTooManyAttempts)

	// The cap check happens before the increment, attempts never exceed it
	var row model.VerificationCode
	require.NoError(t, codes.DB.Where("id = ?", code.ID).First(&row).Error)
	assert.Equal(t, codeAttempts, row.Attempts)
}

func TestVerify_ExpiredBurnsNothing(t *testing.T) {
	codes := NewCodeService(newTestDB(t))

	code := issueCode(t, codes, "a@b.com", model.PurposeRegister)

	err := codes.DB.Model(model.VerificationCode{}).Where("id = ?", code.ID).
		Update("expires_at", time.Now().Add(-time.Second)).Error
	require.NoError(t, err)

	err = codes.Verify("a@b.com", model.PurposeRegister, code.Code)
	assert.ErrorIs(t, err, ErrCodeExpired)

	var row model.VerificationCode
	require.NoError(t, codes.DB.Where("id = ?", code.ID).First(&row).Error)
	assert.Equal(t, 0, row.Attempts)
	assert.False(t, row.Used)
}

func TestIssue_SupersedesPrevious(t *testing.T) {
	codes := NewCodeService(newTestDB(t))

	first := issueCode(t, codes, "a@b.com", model.PurposeRegister)
	backdate(t, codes, first.ID, codeCooldown+time.Second)

	second := issueCode(t, codes, "a@b.com", model.PurposeRegister)

	var row model.VerificationCode
	require.NoError(t, codes.DB.Where("id = ?", first.ID).First(&row).Error)
	assert.True(t, row.Used, "the older code must be superseded")

	require.NoError(t, codes.Verify("a@b.com", model.PurposeRegister, second.Code))
}

func TestIssue_PurposesAreIndependent(t *testing.T) {
	codes := NewCodeService(newTestDB(t))

	reg := issueCode(t, codes, "a@b.com", model.PurposeRegister)
	reset := issueCode(t, codes, "a@b.com", model.PurposeResetPassword)

	require.NoError(t, codes.Verify("a@b.com", model.PurposeRegister, reg.Code))

	// Consuming the register code leaves the reset code alone
	require.NoError(t, codes.Verify("a@b.com", model.PurposeResetPassword, reset.Code))
}

func TestCanIssue_Cooldown(t *testing.T) {
	codes := NewCodeService(newTestDB(t))

	allowed, wait, err := codes.CanIssue("a@b.com", model.PurposeRegister)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, wait)

	code := issueCode(t, codes, "a@b.com", model.PurposeRegister)

	allowed, wait, err = codes.CanIssue("a@b.com", model.PurposeRegister)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, wait, 0)
	assert.LessOrEqual(t, wait, int(codeCooldown.Seconds())+1)

	// Consuming the code doesn't lift the cooldown
	require.NoError(t, codes.Verify("a@b.com", model.PurposeRegister, code.Code))

	allowed, _, err = codes.CanIssue("a@b.com", model.PurposeRegister)
	require.NoError(t, err)
	assert.False(t, allowed)

	backdate(t, codes, code.ID, codeCooldown+time.Second)

	allowed, wait, err = codes.CanIssue("a@b.com", model.PurposeRegister)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, wait)
}

func TestPeek_DoesNotConsume(t *testing.T) {
	codes := NewCodeService(newTestDB(t))

	code := issueCode(t, codes, "a@b.com", model.PurposeRegister)
	forceCode(t, codes, code.ID, "012345")

	require.NoError(t, codes.Peek("a@b.com", model.PurposeRegister, "012345"))

	err := codes.Peek("a@b.com", model.PurposeRegister, "999999")
	assert.ErrorIs(t, err, ErrCodeMismatch)

	// Neither peek touched the row
	var row model.VerificationCode
	require.NoError(t, codes.DB.Where("id = ?", code.ID).First(&row).Error)
	assert.Equal(t, 0, row.Attempts)
	assert.False(t, row.Used)

	require.NoError(t, codes.Verify("a@b.com", model.PurposeRegister, "012345"))
}

func TestPeek_Statuses(t *testing.T) {
	codes := NewCodeService(newTestDB(t))

	err := codes.Peek("nobody@b.com", model.PurposeRegister, "123456")
	assert.ErrorIs(t, err, ErrCodeNotFound)

	code := issueCode(t, codes, "a@b.com", model.PurposeRegister)

	err = codes.DB.Model(model.VerificationCode{}).Where("id = ?", code.ID).
		Update("expires_at", time.Now().Add(-time.Second)).Error
	require.NoError(t, err)

	err = codes.Peek("a@b.com", model.PurposeRegister, code.Code)
	assert.ErrorIs(t, err, ErrCodeExpired)
}

func TestCodeMismatchError_Matching(t *testing.T) {
	t.Parallel()

	err := error(&CodeMismatchError{AttemptsLeft: 2})

	assert.True(t, errors.Is(err, ErrCodeMismatch))
	assert.Contains(t, err.Error(), "2 attempts left")
}
