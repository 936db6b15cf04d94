package serve

import "net/http"

func handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>jukebox</title>
  <style>
    * { margin: 0; padding: 0; box-sizing: border-box; }
    body { font-family: system-ui, sans-serif; background: #111; color: #eee; padding: 16px; }
    h1 { font-size: 20px; margin-bottom: 4px; }
    #meta { color: #999; font-size: 13px; margin-bottom: 12px; }
    #bar { height: 6px; background: #333; border-radius: 3px; margin: 8px 0 16px; cursor: pointer; }
    #fill { height: 100%; width: 0; background: #c084fc; border-radius: 3px; }
    .row { display: flex; gap: 8px; flex-wrap: wrap; margin-bottom: 12px; }
    button { flex: 1; padding: 12px; font-size: 16px; border: 0; border-radius: 8px; background: #2a2a2a; color: #eee; }
    button.on { background: #6b21a8; }
    #prompt, #vote { display: none; background: #222; padding: 12px; border-radius: 8px; margin-bottom: 12px; }
    #toast { position: fixed; bottom: 16px; left: 16px; right: 16px; padding: 10px; border-radius: 8px;
             background: rgba(80,80,80,0.9); text-align: center; opacity: 0; transition: opacity 0.3s; }
    ol { margin-left: 20px; color: #bbb; }
    li { padding: 4px 0; }
    li.current { color: #c084fc; }
    #status { position: fixed; top: 8px; right: 8px; font-size: 11px; padding: 2px 8px; border-radius: 4px; background: #b00; }
    #status.connected { background: #070; }
  </style>
</head>
<body>
  <div id="status">connecting...</div>
  <div id="prompt"><p id="prompt-text"></p><div class="row">
    <button onclick="send({command:'confirm'})">Play</button>
    <button onclick="send({command:'dismiss'})">Not now</button></div></div>
  <div id="vote"><p id="vote-text"></p><div class="row">
    <button onclick="vote('up')">👍</button>
    <button onclick="vote('down')">👎</button>
    <button onclick="send({command:'dismiss-vote'})">Skip</button></div></div>
  <h1 id="title">Nothing playing</h1>
  <div id="meta"></div>
  <div id="bar"><div id="fill"></div></div>
  <div class="row">
    <button onclick="send({command:'prev'})">⏮</button>
    <button id="toggle" onclick="send({command:'toggle'})">▶</button>
    <button onclick="send({command:'next'})">⏭</button>
  </div>
  <div class="row">
    <button id="shuffle" onclick="send({command:'shuffle'})">Shuffle</button>
    <button id="repeat" onclick="send({command:'repeat'})">Repeat</button>
    <button id="mute" onclick="send({command:'mute'})">Mute</button>
    <button onclick="mark()">★</button>
  </div>
  <div class="row">
    <button onclick="send({command:'volume', value: Math.max(0, state.volume - 0.1)})">Vol -</button>
    <button onclick="send({command:'volume', value: Math.min(1, state.volume + 0.1)})">Vol +</button>
  </div>
  <h2 style="font-size:15px;margin:8px 0">Up next</h2>
  <ol id="queue"></ol>
  <div id="toast"></div>
  <script>
    let ws, state = {volume: 1}, votePrompt = null, toastTimer;
    const $ = id => document.getElementById(id);
    const fmt = s => !s || s < 0 ? '--:--' : Math.floor(s / 60) + ':' + String(Math.floor(s % 60)).padStart(2, '0');

    function send(cmd) { if (ws && ws.readyState === 1) ws.send(JSON.stringify(cmd)); }
    function vote(dir) { if (votePrompt) send({command: 'vote', url: votePrompt.url, mode: dir}); send({command: 'dismiss-vote'}); }
    function mark() { if (state.song) send({command: 'mark', url: state.song.url, value: state.position}); }
    function toast(msg) {
      $('toast').textContent = msg; $('toast').style.opacity = 1;
      clearTimeout(toastTimer); toastTimer = setTimeout(() => $('toast').style.opacity = 0, 3000);
    }

    function render() {
      const s = state.song;
      $('title').textContent = s ? s.title : 'Nothing playing';
      $('meta').textContent = s ? [s.style, s.bpm ? s.bpm + ' BPM' : '', fmt(state.position) + ' / ' + fmt(state.duration)].filter(Boolean).join(' · ') : '';
      $('fill').style.width = state.duration > 0 ? (100 * state.position / state.duration) + '%' : '0';
      $('toggle').textContent = state.isPlaying ? '⏸' : '▶';
      $('shuffle').classList.toggle('on', !!state.isShuffled);
      $('repeat').textContent = 'Repeat ' + state.repeatMode;
      $('mute').classList.toggle('on', !!state.isMuted);
      const upcoming = (state.queue || []).concat(state.playlist || []).slice(0, 20);
      $('queue').innerHTML = '';
      upcoming.forEach(song => {
        const li = document.createElement('li');
        li.textContent = song.title;
        if (s && song.url === s.url) li.className = 'current';
        li.onclick = () => send({command: 'play', url: song.url});
        $('queue').appendChild(li);
      });
      $('prompt').style.display = state.shared ? 'block' : 'none';
      if (state.shared) $('prompt-text').textContent = 'Play "' + state.shared.song.title + '"' + (state.shared.start ? ' from ' + fmt(state.shared.start) : '') + '?';
      votePrompt = state.votePrompt || null;
      $('vote').style.display = votePrompt ? 'block' : 'none';
      if (votePrompt) $('vote-text').textContent = 'How was "' + votePrompt.title + '"?';
    }

    $('bar').onclick = e => {
      if (state.duration > 0) send({command: 'seek', value: state.duration * e.offsetX / $('bar').clientWidth});
    };

    function connect() {
      const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
      ws = new WebSocket(proto + '//' + location.host + '/ws');
      ws.onopen = () => {
        $('status').textContent = 'connected'; $('status').className = 'connected';
        if (location.search.includes('song=')) {
          send({command: 'open', link: location.search});
          history.replaceState(null, '', location.pathname);
        }
      };
      ws.onmessage = e => {
        const msg = JSON.parse(e.data);
        if (msg.state) { state = msg.state; render(); }
        if (msg.type === 'toast') toast(msg.message);
        else if (msg.type === 'error') toast(msg.error);
        else if (msg.type === 'votePrompt') { state.votePrompt = msg.song; render(); }
      };
      ws.onclose = () => {
        $('status').textContent = 'disconnected'; $('status').className = '';
        setTimeout(connect, 2000);
      };
    }
    connect();
  </script>
</body>
</html>
`
