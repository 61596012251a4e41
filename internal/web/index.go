package web

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Activity Log</title>
    <script src="https://unpkg.com/htmx.org@1.9.10"></script>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        :root {
            --bg-primary: #f5f5f5;
            --bg-secondary: white;
            --text-primary: #333;
            --text-muted: #7f8c8d;
            --accent-color: #3498db;
            --heading-color: #2c3e50;
            --shadow: rgba(0,0,0,0.1);
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: var(--bg-primary);
            padding: 20px;
            color: var(--text-primary);
        }
        h1 { font-size: 2rem; margin-bottom: 30px; }
        .dashboard { display: flex; gap: 20px; flex-wrap: wrap; }
        .report-box {
            flex: 1;
            min-width: 300px;
            background: var(--bg-secondary);
            border-radius: 8px;
            box-shadow: 0 2px 4px var(--shadow);
            padding: 24px;
        }
        .report-box h2 {
            font-size: 1.5rem;
            margin-bottom: 20px;
            color: var(--heading-color);
            border-bottom: 2px solid var(--accent-color);
            padding-bottom: 10px;
        }
        .totals { display: grid; grid-template-columns: repeat(4, 1fr); gap: 12px; }
        .totals .label { display: block; color: var(--text-muted); font-size: 0.8rem; }
        .totals .value { font-size: 1.6rem; font-variant-numeric: tabular-nums; }
        .app-item {
            display: flex;
            justify-content: space-between;
            padding: 8px 0;
            background: linear-gradient(90deg, rgba(52,152,219,0.15) var(--bar-width), transparent var(--bar-width));
        }
        .total { margin-top: 12px; font-weight: bold; }
        .timeline { font-family: monospace; font-size: 0.8rem; line-height: 1.1; }
        .loading { color: var(--text-muted); }
    </style>
</head>
<body>
    <h1>Activity Log</h1>
    <div class="dashboard">
        <div class="report-box">
            <h2>Today</h2>
            <div hx-get="/api/day" hx-trigger="load, every 5s"><div class="loading">Loading...</div></div>
        </div>
        <div class="report-box">
            <h2>Focus</h2>
            <div hx-get="/api/focus" hx-trigger="load, every 5s"><div class="loading">Loading...</div></div>
        </div>
    </div>
    <div class="dashboard" style="margin-top: 20px">
        <div class="report-box">
            <h2>Timeline</h2>
            <div hx-get="/api/timeline" hx-trigger="load, every 30s"><div class="loading">Loading...</div></div>
        </div>
    </div>
</body>
</html>`
