package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/finance-bot/internal/domain"
	"github.com/dvloznov/finance-bot/internal/ledger"
)

var rp = domain.FormatRupiah

const helpText = `📖 *MENU PERINTAH BOT KEUANGAN*

📊 *RINGKASAN FINANSIAL*
/summary - Ringkasan hari ini
/weekly - Ringkasan 7 hari terakhir
/monthly - Ringkasan 30 hari terakhir

💰 *BUDGET & TARGET*
/setbudget {kategori} {jumlah}
/budget {kategori}
/budgets - Lihat semua budget
/target {daily|weekly} {jumlah}

🎯 *GOAL & TRACKING*
/goal {kategori} {jumlah} - Simpan goal
/goals - Lihat progress semua goal

⚠️ *NOTIFIKASI*
/dalert - Status daily target
/walert - Status weekly target

📈 *ANALISIS PENGELUARAN*
/breakdown [{hari}] - Per kategori
/ratio [{hari}] - Income vs Expense
/history [{kategori}] [{hari}] - Cari transaksi

🔄 *TRANSAKSI OTOMATIS*
/setrecurring {kat} {jml} {daily|weekly|monthly}
/recurring - Lihat daftar

📄 *EXPORT & UNDO*
/export [{hari}] - Download PDF
/undo - Hapus transaksi terakhir

💵 *FORMAT INPUT TRANSAKSI*
Tanpa perintah, cukup ketik:

makan 25000
gaji 10000000
bensin 2.5k`

func (d *Dispatcher) help(ctx context.Context, req Request) (string, error) {
	return helpText, nil
}

func (d *Dispatcher) undo(ctx context.Context, req Request) (string, error) {
	e, ok, err := d.store.LastTransaction(ctx, req.Sender)
	if err != nil {
		return "", err
	}
	if !ok {
		return "⚠️ Tidak ada transaksi yang bisa di-undo.", nil
	}
	if err := d.store.DeleteTransaction(ctx, e); err != nil {
		if errors.Is(err, ledger.ErrStaleRow) {
			return "⚠️ Transaksi terakhir berubah, coba /undo lagi.", nil
		}
		return "", err
	}
	return fmt.Sprintf("✅ Transaksi %s %d dihapus", e.Tx.Category, e.Tx.Amount), nil
}

func formatSummary(title string, s domain.Summary, withCount bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 %s\n\n", title)
	if withCount {
		fmt.Fprintf(&b, "Transaksi: %d\n", s.Count)
	}
	fmt.Fprintf(&b, "Income: %s\nExpense: %s\nNet: %s\n\n", rp(s.Income), rp(s.Expense), rp(s.Net()))
	fmt.Fprintf(&b, "Saving Rate: %s%%", s.SavingRate().StringFixed(1))
	return b.String()
}

func (d *Dispatcher) summary(ctx context.Context, req Request) (string, error) {
	s, err := d.store.Summarize(ctx, req.Sender, ledger.StartOfDay(req.Now, d.store.Location()), time.Time{})
	if err != nil {
		return "", err
	}
	return formatSummary("RINGKASAN HARI INI", s, false), nil
}

func (d *Dispatcher) weekly(ctx context.Context, req Request) (string, error) {
	s, err := d.store.Summarize(ctx, req.Sender, req.Now.AddDate(0, 0, -7), time.Time{})
	if err != nil {
		return "", err
	}
	return formatSummary("RINGKASAN 7 HARI TERAKHIR", s, true), nil
}

func (d *Dispatcher) monthly(ctx context.Context, req Request) (string, error) {
	s, err := d.store.Summarize(ctx, req.Sender, req.Now.AddDate(0, 0, -30), time.Time{})
	if err != nil {
		return "", err
	}
	return formatSummary("RINGKASAN 30 HARI TERAKHIR", s, true), nil
}

func (d *Dispatcher) setBudget(ctx context.Context, req Request) (string, error) {
	if len(req.Args) < 2 {
		return "❌ Format: /setbudget {kategori} {amount}\nContoh: /setbudget makan 500000", nil
	}
	amount, ok := parseAmountArg(req.Args[1])
	if !ok {
		return "❌ Amount harus angka", nil
	}
	category := req.Args[0]
	if err := d.store.SetBudget(ctx, domain.Budget{Timestamp: req.Now, Sender: req.Sender, Category: category, Amount: amount}); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Budget %s ditetapkan: %s", category, rp(amount)), nil
}

func (d *Dispatcher) budget(ctx context.Context, req Request) (string, error) {
	if len(req.Args) < 1 {
		return "❌ Format: /budget {kategori}\nContoh: /budget makan", nil
	}
	category := req.Args[0]
	b, ok, err := d.store.Budget(ctx, req.Sender, category)
	if err != nil {
		return "", err
	}
	if !ok {
		return fmt.Sprintf("❌ Belum ada budget untuk %s", category), nil
	}
	return fmt.Sprintf("💰 Budget %s: %s", category, rp(b.Amount)), nil
}

func (d *Dispatcher) budgets(ctx context.Context, req Request) (string, error) {
	list, err := d.store.Budgets(ctx, req.Sender)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "📋 Belum ada budget. Gunakan /setbudget", nil
	}
	var b strings.Builder
	b.WriteString("💰 DAFTAR BUDGET:\n")
	for _, bg := range list {
		fmt.Fprintf(&b, "\n%s: %s", bg.Category, rp(bg.Amount))
	}
	return b.String(), nil
}

func (d *Dispatcher) target(ctx context.Context, req Request) (string, error) {
	if len(req.Args) < 2 {
		return "❌ Format: /target {daily|weekly} {amount}\nContoh: /target daily 500000", nil
	}
	period, ok := domain.ParsePeriod(req.Args[0])
	if !ok {
		return "❌ Period harus daily atau weekly", nil
	}
	amount, ok := parseAmountArg(req.Args[1])
	if !ok {
		return "❌ Amount harus angka", nil
	}
	if err := d.store.SetTarget(ctx, domain.Target{Timestamp: req.Now, Sender: req.Sender, Period: period, Amount: amount}); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Target %s ditetapkan: %s", period, rp(amount)), nil
}

func (d *Dispatcher) breakdown(ctx context.Context, req Request) (string, error) {
	days := daysArg(req.Args, defaultDays)
	totals, err := d.store.CategoryBreakdown(ctx, req.Sender, req.Now.AddDate(0, 0, -days), time.Time{})
	if err != nil {
		return "", err
	}
	if len(totals) == 0 {
		return fmt.Sprintf("📊 Tidak ada data untuk %d hari terakhir", days), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📊 BREAKDOWN %d HARI:\n", days)
	for _, ct := range totals {
		fmt.Fprintf(&b, "\n%s: %s (%d transaksi)", ct.Category, rp(ct.Total), ct.Count)
	}
	return b.String(), nil
}

func (d *Dispatcher) ratio(ctx context.Context, req Request) (string, error) {
	days := daysArg(req.Args, defaultDays)
	s, err := d.store.Summarize(ctx, req.Sender, req.Now.AddDate(0, 0, -days), time.Time{})
	if err != nil {
		return "", err
	}
	if s.Count == 0 {
		return fmt.Sprintf("📊 Tidak ada data untuk %d hari terakhir", days), nil
	}
	return fmt.Sprintf("📊 INCOME vs EXPENSE (%d hari):\n\nIncome: %s\nExpense: %s\nSaved: %s\nSaving Rate: %s%%",
		days, rp(s.Income), rp(s.Expense), rp(s.Net()), s.SavingRate().StringFixed(1)), nil
}

func (d *Dispatcher) history(ctx context.Context, req Request) (string, error) {
	var category string
	days := defaultDays
	if len(req.Args) > 0 {
		if n, ok := parseDays(req.Args[0]); ok {
			days = n
		} else {
			category = req.Args[0]
			days = daysArg(req.Args[1:], defaultDays)
		}
	}

	txs, err := d.store.Search(ctx, req.Sender, category, req.Now.AddDate(0, 0, -days), historyLimit)
	if err != nil {
		return "", err
	}
	label := category
	if label == "" {
		label = "semua kategori"
	}
	if len(txs) == 0 {
		return fmt.Sprintf("📝 Tidak ada transaksi untuk %s", label), nil
	}

	title := strings.ToUpper(category)
	if title == "" {
		title = "ALL"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📝 HISTORY %s (%d hari):\n", title, days)
	for _, tx := range txs {
		fmt.Fprintf(&b, "\n%s %s %s: %s", tx.Timestamp.In(d.store.Location()).Format("02/01"), tx.Category, tx.Type, rp(tx.Amount))
	}
	return b.String(), nil
}

func (d *Dispatcher) setRecurring(ctx context.Context, req Request) (string, error) {
	if len(req.Args) < 3 {
		return "❌ Format: /setrecurring {kategori} {amount} {daily|weekly|monthly}\nContoh: /setrecurring bensin 100000 weekly", nil
	}
	amount, ok := parseAmountArg(req.Args[1])
	if !ok {
		return "❌ Amount harus angka", nil
	}
	freq, ok := domain.ParseFrequency(req.Args[2])
	if !ok {
		return "❌ Frequency harus daily, weekly, atau monthly", nil
	}
	category := req.Args[0]
	rule := domain.RecurringRule{
		Timestamp: req.Now,
		Sender:    req.Sender,
		Category:  category,
		Amount:    amount,
		Frequency: freq,
		Note:      "Auto " + string(freq),
	}
	if err := d.store.AddRecurring(ctx, rule); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Recurring %s %s (%s) ditambahkan", category, rp(amount), freq), nil
}

func (d *Dispatcher) recurring(ctx context.Context, req Request) (string, error) {
	rules, err := d.store.RecurringRules(ctx, req.Sender)
	if err != nil {
		return "", err
	}
	if len(rules) == 0 {
		return "❌ Belum ada recurring transaction", nil
	}
	var b strings.Builder
	b.WriteString("🔄 DAFTAR RECURRING TRANSACTION:\n")
	for i, r := range rules {
		fmt.Fprintf(&b, "\n%d. %s %s (%s)", i+1, r.Category, rp(r.Amount), r.Frequency)
		if !r.LastRun.IsZero() {
			fmt.Fprintf(&b, " terakhir %s", r.LastRun.In(d.store.Location()).Format("02/01/2006"))
		}
	}
	return b.String(), nil
}

func (d *Dispatcher) export(ctx context.Context, req Request) (string, error) {
	days := defaultDays
	if len(req.Args) > 0 {
		n, ok := parseDays(req.Args[0])
		if !ok {
			return "❌ Format: /export [hari]\nContoh: /export 30", nil
		}
		days = n
	}

	if d.exporter != nil {
		if _, err := d.exporter.Render(ctx, req.Sender, days); err != nil {
			return "❌ Error saat membuat laporan", nil
		}
	}

	link := fmt.Sprintf("%s/export/%s/%d", d.baseURL, req.Sender, days)
	return fmt.Sprintf("📄 Laporan Anda siap!\n\nKlik link di bawah untuk download:\n%s\n\nLaporan berisi %d hari transaksi terakhir Anda.", link, days), nil
}

func (d *Dispatcher) goal(ctx context.Context, req Request) (string, error) {
	if len(req.Args) < 2 {
		return "❌ Format: /goal {kategori} {amount}\nContoh: /goal saving 500000", nil
	}
	amount, ok := parseAmountArg(req.Args[1])
	if !ok {
		return "❌ Amount harus berupa angka", nil
	}
	category := req.Args[0]
	if err := d.store.SetGoal(ctx, domain.Goal{Timestamp: req.Now, Sender: req.Sender, Category: category, TargetAmount: amount}); err != nil {
		return "", err
	}
	return fmt.Sprintf("🎯 Goal %s ditetapkan: %s", category, rp(amount)), nil
}

// progressBar draws ten cells, one per ten percent.
func progressBar(percent int) string {
	filled := min(max(percent/10, 0), 10)
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
}

func (d *Dispatcher) goals(ctx context.Context, req Request) (string, error) {
	progress, err := d.store.GoalsProgress(ctx, req.Sender)
	if err != nil {
		return "", err
	}
	if len(progress) == 0 {
		return "📋 Belum ada goals. Gunakan /goal untuk membuat.\nContoh: /goal saving 500000", nil
	}
	var b strings.Builder
	b.WriteString("🎯 PROGRESS GOALS:\n")
	for _, p := range progress {
		fmt.Fprintf(&b, "\n%s:\n%s %d%%\n%s / %s\n", p.Goal.Category, progressBar(p.Percent), p.Percent, rp(p.Saved), rp(p.Goal.TargetAmount))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatTargetStatus(title string, st domain.TargetStatus, withDays bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 %s\n\nTarget: %s\nSpent: %s\n", title, rp(st.Target), rp(st.Spent))
	if withDays {
		fmt.Fprintf(&b, "Days Left: %d\n", st.DaysRemaining)
	}
	if st.Exceeded {
		fmt.Fprintf(&b, "⚠️ Over: %s", rp(st.OverBy))
	} else {
		fmt.Fprintf(&b, "✅ Remaining: %s", rp(st.Remaining))
	}
	return b.String()
}

func (d *Dispatcher) dailyAlert(ctx context.Context, req Request) (string, error) {
	st, ok, err := d.store.CheckDailyTarget(ctx, req.Sender, 0, "", req.Now)
	if err != nil {
		return "", err
	}
	if !ok {
		return "📊 Belum ada daily target. Gunakan /target daily {amount}\nContoh: /target daily 500000", nil
	}
	return formatTargetStatus("DAILY TARGET STATUS", st, false), nil
}

func (d *Dispatcher) weeklyAlert(ctx context.Context, req Request) (string, error) {
	st, ok, err := d.store.CheckWeeklyTarget(ctx, req.Sender, req.Now)
	if err != nil {
		return "", err
	}
	if !ok {
		return "📊 Belum ada weekly target. Gunakan /target weekly {amount}\nContoh: /target weekly 3500000", nil
	}
	return formatTargetStatus("WEEKLY TARGET STATUS", st, true), nil
}
