package commands

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"crypto-portfolio-bot/internal/conversation"
	"crypto-portfolio-bot/internal/database"
	"crypto-portfolio-bot/internal/portfolio"
	"crypto-portfolio-bot/lib/helpers"
)

func restartEdit() string {
	return t("Start again with /deleteedit.")
}

func (d *Dispatcher) commandDeleteEdit(ctx context.Context, userID int64) Response {
	txs, err := d.store.RecentTransactions(ctx, userID, recentForEdit)
	if err != nil {
		return d.internalError(err, userID, "Failed to load transactions")
	}
	if len(txs) == 0 {
		return reply(t("You have no transactions to delete or edit."))
	}

	var sb strings.Builder
	sb.WriteString(t("Select the transaction number:") + "\n\n")
	for i, tx := range txs {
		sb.WriteString(helpers.EscapeMarkdownV2(strconv.Itoa(i+1)+". "+portfolio.RenderTransactionLine(tx)) + "\n")
	}

	d.sessions.Set(userID, conversation.Session{State: conversation.AwaitingSelection, Candidates: txs})
	return reply(strings.TrimRight(sb.String(), "\n"))
}

func (d *Dispatcher) selectTransaction(userID int64, sess conversation.Session, text string) Response {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 || n > len(sess.Candidates) {
		d.sessions.Reset(userID)
		return reply("❌ " + t("Invalid selection.") + " " + restartEdit())
	}

	tx := sess.Candidates[n-1]
	d.sessions.Set(userID, conversation.Session{State: conversation.AwaitingAction, Transaction: tx})
	return reply(t("Selected: %s", portfolio.RenderTransactionLine(tx)) + "\n" +
		t("Send D to delete it or M to modify it."))
}

func (d *Dispatcher) chooseAction(ctx context.Context, userID int64, sess conversation.Session, text string) Response {
	switch strings.ToUpper(strings.TrimSpace(text)) {
	case "D", "E":
		d.sessions.Reset(userID)
		removed, err := d.store.DeleteTransaction(ctx, userID, sess.Transaction.ID)
		if err != nil {
			return d.internalError(err, userID, "Failed to delete transaction")
		}
		if !removed {
			return reply(t("The transaction no longer exists.") + " " + restartEdit())
		}
		return reply("🗑 " + t("Transaction deleted."))
	case "M":
		d.sessions.Set(userID, conversation.Session{State: conversation.AwaitingEdit, Transaction: sess.Transaction})
		return reply("📝 " + t("Send the new values.") + "\n" + transactionFormat())
	}

	d.sessions.Reset(userID)
	return reply("❌ " + t("Invalid action.") + " " + restartEdit())
}

func (d *Dispatcher) editTransaction(ctx context.Context, userID int64, sess conversation.Session, text string) Response {
	tx, err := ParseTransactionLine(text)
	if err != nil {
		return reply("❌ " + t("Invalid transaction.") + " " + restartEdit())
	}

	tx.ID = sess.Transaction.ID
	tx.UserID = userID
	if err := d.store.UpdateTransaction(ctx, tx); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return reply(t("The transaction no longer exists.") + " " + restartEdit())
		}
		return d.internalError(err, userID, "Failed to update transaction")
	}
	return reply("✅ " + t("Transaction updated: %s", portfolio.RenderTransactionLine(tx)))
}

func (d *Dispatcher) commandReset(userID int64) Response {
	d.sessions.Await(userID, conversation.AwaitingResetConfirmation)
	return reply("⚠️ " + t("Are you sure you want to delete ALL your transactions? Reply YES to confirm."))
}

func (d *Dispatcher) confirmReset(ctx context.Context, userID int64, text string) Response {
	if !confirmTokens[strings.ToUpper(strings.TrimSpace(text))] {
		return reply(t("Reset cancelled."))
	}

	n, err := d.store.DeleteUserTransactions(ctx, userID)
	if err != nil {
		return d.internalError(err, userID, "Failed to reset transactions")
	}
	return reply("🗑 " + t("All your transactions have been deleted (%d).", n))
}
