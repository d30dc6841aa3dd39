package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"crowdtasks-admin/internal/assignment"
	"crowdtasks-admin/internal/marketplace"
	"crowdtasks-admin/internal/metrics"
	runpkg "crowdtasks-admin/internal/run"
	"crowdtasks-admin/internal/shared/eventbus"
	"crowdtasks-admin/internal/shared/model"
	"crowdtasks-admin/internal/task"
)

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"register":      cmdRegister,
	"add-requester": cmdAddRequester,
	"start-run":     cmdStartRun,
	"status":        cmdStatus,
	"spend":         cmdSpend,
	"study-url":     cmdStudyURL,
	"archive":       cmdArchive,
	"serve-metrics": cmdServeMetrics,
	"events":        cmdEvents,
}

func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func required(fs *flag.FlagSet, names ...string) error {
	for _, n := range names {
		if f := fs.Lookup(n); f != nil && f.Value.String() == "" {
			return fmt.Errorf("%s: -%s is required", fs.Name(), n)
		}
	}
	return nil
}

// ============================================================================
// register
// ============================================================================

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "register")
	name := fs.String("name", "", "任务名称（唯一）")
	taskType := fs.String("type", string(model.TaskTypeGeneric), "任务类型")
	project := fs.String("project", "", "所属项目名称（不存在时创建）")
	parent := fs.String("parent", "", "父任务名称，内容目录从父任务克隆")
	yes := fs.Bool("yes", false, "覆盖已有内容目录时不再询问")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "name"); err != nil {
		return err
	}

	// 项目在注册成功时才创建
	req := task.RegisterRequest{Name: *name, Type: model.TaskType(*taskType), ProjectName: *project, SkipConfirm: *yes}
	if *parent != "" {
		p, err := a.tasks.FindByName(ctx, *parent)
		if err != nil {
			return err
		}
		req.ParentTask = p
	}

	t, err := a.tasks.Register(ctx, req)
	if err != nil {
		return err
	}
	dir, err := a.tasks.Source(t)
	if err != nil {
		return err
	}
	a.printf("registered task %s (%s) id=%s dir=%s\n", t.Name, t.Type, t.ID, dir)
	return nil
}

// ============================================================================
// add-requester
// ============================================================================

func cmdAddRequester(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "add-requester")
	name := fs.String("name", "", "平台上的身份名称")
	provider := fs.String("provider", "mock", "众包平台")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "name"); err != nil {
		return err
	}

	r := &model.Requester{ID: uuid.NewString(), Name: *name, Provider: *provider, CreatedAt: time.Now().UTC()}
	if err := a.infra.Storage.CreateRequester(ctx, r); err != nil {
		return fmt.Errorf("create requester %s: %w", *name, err)
	}
	a.printf("created requester %s (%s) id=%s\n", r.Name, r.Provider, r.ID)
	return nil
}

// ============================================================================
// start-run
// ============================================================================

func cmdStartRun(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "start-run")
	taskName := fs.String("task", "", "任务名称")
	requesterID := fs.String("requester", "", "Requester ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "task", "requester"); err != nil {
		return err
	}

	t, err := a.tasks.FindByName(ctx, *taskName)
	if err != nil {
		return err
	}
	r, err := a.infra.Storage.GetRequester(ctx, *requesterID)
	if err != nil {
		return fmt.Errorf("requester %s: %w", *requesterID, err)
	}

	// -- 之后的参数交给任务类型的参数模式解析
	run, err := a.runs.StartWithParams(ctx, t, r, fs.Args())
	if err != nil {
		return err
	}
	dir, err := a.runs.ResolveRunDirectory(ctx, run)
	if err != nil {
		return err
	}
	a.printf("started run %s of task %s dir=%s\n", run.ID, t.Name, dir)
	return nil
}

// ============================================================================
// status
// ============================================================================

func cmdStatus(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "status")
	runID := fs.String("run", "", "Run ID")
	taskName := fs.String("task", "", "任务名称（统计全部 Run）")
	status := fs.String("status", "", "只列出该状态的 Assignment（需配合 -run）")
	asJSON := fs.Bool("json", false, "以 JSON 输出")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch {
	case *runID != "" && *status != "":
		st, err := assignment.ParseStatus(*status)
		if err != nil {
			return err
		}
		list, err := a.agg.Filter(ctx, *runID, &st)
		if err != nil {
			return err
		}
		if *asJSON {
			return a.printJSON(list)
		}
		for _, as := range list {
			a.printf("%s\t%s\t%s\t%.2f\n", as.ID, as.WorkerID, as.Status, as.Cost)
		}
		return nil

	case *runID != "":
		counts, err := a.agg.CountByStatus(ctx, *runID)
		if err != nil {
			return err
		}
		return a.printCounts(counts, *asJSON)

	case *taskName != "":
		t, err := a.tasks.FindByName(ctx, *taskName)
		if err != nil {
			return err
		}
		counts, err := a.agg.CountByStatusForTask(ctx, t.ID)
		if err != nil {
			return err
		}
		return a.printCounts(counts, *asJSON)
	}
	return errors.New("status: -run or -task is required")
}

func (a *app) printCounts(counts map[model.AssignmentStatus]int, asJSON bool) error {
	if asJSON {
		return a.printJSON(counts)
	}
	for _, st := range model.ValidAssignmentStatuses() {
		a.printf("%-16s %d\n", st, counts[st])
	}
	return nil
}

// ============================================================================
// spend
// ============================================================================

func cmdSpend(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "spend")
	taskName := fs.String("task", "", "任务名称")
	asJSON := fs.Bool("json", false, "以 JSON 输出")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "task"); err != nil {
		return err
	}

	t, err := a.tasks.FindByName(ctx, *taskName)
	if err != nil {
		return err
	}
	s, err := a.calc.Summary(ctx, t.ID)
	if err != nil {
		return err
	}
	if *asJSON {
		return a.printJSON(s)
	}
	for _, r := range s.Runs {
		a.printf("%s\t%d/%d payable\t%.2f\n", r.RunID, r.Payable, r.Assignments, r.Spend)
	}
	a.printf("total\t%.2f\n", s.Total)
	return nil
}

// ============================================================================
// study-url
// ============================================================================

func cmdStudyURL(_ context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "study-url")
	template := fs.String("template", a.cfg.Marketplace.StudyURL, "外部任务页面 URL")
	idOption := fs.String("id-option", a.cfg.Marketplace.IDOption, "身份传递方式：not_required | question | url_parameters")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "template"); err != nil {
		return err
	}

	mode, err := marketplace.ParseIDOption(*idOption)
	if err != nil {
		return err
	}
	u, err := marketplace.StudyURL(*template, mode)
	if err != nil {
		return err
	}
	a.printf("%s\n", u)

	if q, err := a.cfg.Questions().AgeRange(); err == nil {
		a.printf("age range question: %s\n", q)
	} else {
		a.logger.WithError(err).Warn("Age range screening unavailable")
	}
	return nil
}

// ============================================================================
// archive
// ============================================================================

func cmdArchive(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "archive")
	runID := fs.String("run", "", "Run ID")
	list := fs.Bool("list", false, "归档后列出对象存储中的 key")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, "run"); err != nil {
		return err
	}

	run, err := a.runs.Get(ctx, *runID)
	if err != nil {
		return err
	}
	n, err := a.runs.ArchiveRunDirectory(ctx, run)
	if err != nil {
		return err
	}
	a.printf("archived %d files of run %s\n", n, run.ID)

	if *list && a.infra.Archive != nil {
		dir, err := a.runs.ResolveRunDirectory(ctx, run)
		if err != nil {
			return err
		}
		t, err := a.runs.Task(ctx, run)
		if err != nil {
			return err
		}
		p, err := a.tasks.Project(ctx, t)
		if err != nil {
			return err
		}
		projectName := ""
		if p != nil {
			projectName = p.Name
		}
		keys, err := a.infra.Archive.List(ctx, runpkg.ArchiveKeyPrefix(projectName, run.ID)+"/")
		if err != nil {
			return err
		}
		a.printf("source %s\n", dir)
		for _, k := range keys {
			a.printf("  %s\n", k)
		}
	}
	return nil
}

// ============================================================================
// events
// ============================================================================

func cmdEvents(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "events")
	topic := fs.String("topic", eventbus.TopicTasks, "事件主题：tasks | runs")
	limit := fs.Int64("n", 0, "最多输出的事件数（0 表示全部）")
	asJSON := fs.Bool("json", false, "以 JSON 输出")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *topic != eventbus.TopicTasks && *topic != eventbus.TopicRuns {
		return fmt.Errorf("events: unknown topic %q", *topic)
	}
	// 未配置 Redis 时事件只保存在本进程内存中，命令行进程之间不可见
	if a.cfg.RedisURL == "" {
		return fmt.Errorf("events: requires redis.url (REDIS_URL); without Redis events are not kept across invocations")
	}

	events, err := a.infra.Events.Events(ctx, *topic, *limit)
	if err != nil {
		return err
	}
	if *asJSON {
		return a.printJSON(events)
	}
	for _, ev := range events {
		a.printf("%s\t%s\t%s\t%s\n", ev.Timestamp.Format(time.RFC3339), ev.Type, ev.SubjectID, formatData(ev.Data))
	}
	return nil
}

func formatData(data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+data[k])
	}
	return strings.Join(parts, " ")
}

// ============================================================================
// serve-metrics
// ============================================================================

func cmdServeMetrics(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "serve-metrics")
	addr := fs.String("addr", ":9090", "监听地址")
	interval := fs.Duration("interval", 30*time.Second, "统计刷新间隔")
	if err := fs.Parse(args); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(a.registry))
	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.refreshMetrics(ctx)
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.refreshMetrics(ctx)
			}
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	a.logger.Info("Serving metrics", "addr", *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// refreshMetrics 重新计算全部任务的花费，失败只记录日志
func (a *app) refreshMetrics(ctx context.Context) {
	tasks, err := a.tasks.List(ctx, "")
	if err != nil {
		a.logger.WithError(err).Error("List tasks failed")
		return
	}
	for _, t := range tasks {
		if _, err := a.calc.Summary(ctx, t.ID); err != nil {
			a.logger.WithTaskName(t.Name).WithError(err).Error("Spend refresh failed")
		}
	}
}
